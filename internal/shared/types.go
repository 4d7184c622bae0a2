package shared

// Task types (asynq)
const (
	TypeSweepExpiredEvents = "event:sweep_expired"
	TypeSendOwnerLink      = "email:owner_link"
)

// Queues
const (
	QueueMaintenance = "maintenance"
	QueueDefault     = "default"
)
