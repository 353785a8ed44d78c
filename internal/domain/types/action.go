package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnecting      = "rabbitmq_reconnecting"
	ActionRabbitConsume           = "rabbitmq_consume"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionPublishFailed             = "publish_event_failed"
)

const (
	ActionCreateRide   = "create_ride"
	ActionGetRide      = "get_ride"
	ActionAcceptRide   = "accept_ride"
	ActionStartRide    = "start_ride"
	ActionCompleteRide = "complete_ride"
	ActionCancelRide   = "cancel_ride"

	ActionWaitForRide  = "captain_wait_for_ride"
	ActionOfferRide    = "captain_offer_ride"
	ActionNotifyRider  = "notify_rider"
	ActionRiderWSOpen  = "rider_ws_open"
	ActionRiderWSClose = "rider_ws_close"
)
