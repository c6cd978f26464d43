package domain

// Association связывает соединение с комнатой и участником.
// Пустой RoomID - соединение ещё не вошло ни в одну комнату.
type Association struct {
	ConnectionID string
	RoomID       string
	MemberID     string
}

func (a Association) Joined() bool { return a.RoomID != "" }
