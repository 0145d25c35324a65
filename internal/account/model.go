package account

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is the persisted account document. PasswordHash and RefreshToken never
// leave the service; handlers only ever see a PublicUser.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Username     string        `bson:"username"`
	Email        string        `bson:"email"`
	Phone        int64         `bson:"phone"`
	PasswordHash string        `bson:"password_hash"`
	RefreshToken string        `bson:"refresh_token,omitempty"`
	CreatedAt    time.Time     `bson:"created_at"`
}

// PublicUser is the client-facing view of a user record.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     int64     `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips credentials and session state from the record.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.Hex(),
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterInput is the data required to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Phone    int64
	Password string
}

// TokenPair is an issued session: a short-lived access token and the refresh
// token persisted on the user record.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
