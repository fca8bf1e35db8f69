package log

const (
	// Service
	FieldService = "service"

	// Actors
	FieldUserID   = "user_id"
	FieldSender   = "sender"
	FieldReceiver = "receiver"

	// Transport
	FieldConnID    = "conn_id"
	FieldDelivered = "delivered"
)
