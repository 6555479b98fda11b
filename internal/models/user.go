package models

import "time"

type User struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	IsOnline    bool      `json:"isOnline"`
	LastSeen    time.Time `json:"lastSeen"`
	JoinedRooms []string  `json:"joinedRooms"`
}
