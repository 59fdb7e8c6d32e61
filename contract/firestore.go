package contract

import "time"

// Document shapes of the five guarded collections. The tagged owner
// fields are the ones the security rules check.

type Profile struct {
	UserID      string `firestore:"userId"`
	DisplayName string `firestore:"display_name"`
	AvatarURL   string `firestore:"avatar_url"`
}

type User struct {
	UID   string `firestore:"uid"`
	Email string `firestore:"email"`
}

type Todo struct {
	UserID    string    `firestore:"userId"`
	Title     string    `firestore:"title"`
	Completed bool      `firestore:"completed"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type Chat struct {
	UserID    string    `firestore:"userId"`
	Title     string    `firestore:"title"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type Message struct {
	ChatID    string    `firestore:"chatId"`
	From      string    `firestore:"from"`
	Message   string    `firestore:"message"`
	CreatedAt time.Time `firestore:"createdAt"`
}
