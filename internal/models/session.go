package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is a server-side record of an issued bearer token. The token's jti
// claim is the session ID.
type Session struct {
	ID           string             `bson:"_id"`
	UserID       primitive.ObjectID `bson:"userId"`
	CreatedAt    time.Time          `bson:"createdAt"`
	LastActivity time.Time          `bson:"lastActivity"`
}
