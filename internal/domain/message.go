package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is one persisted direct message. The seen flag is false at
// creation and flips true only through the seen-receipt flow, never back.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Sender    string             `bson:"sender" json:"sender"`
	Receiver  string             `bson:"receiver" json:"receiver"`
	Message   string             `bson:"message" json:"message"`
	Seen      bool               `bson:"seen" json:"seen"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
