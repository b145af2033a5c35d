package rabbitmq

const prefetch = 10

// Exchange: exchange событий подписок.
const Exchange = "subscriptions"

// LedgerQueue: очередь, из которой ledger пишет журнал событий.
const LedgerQueue = "subscription.ledger"

// QueueConfig описывает очередь и ключи, которыми она привязана к exchange.
type QueueConfig struct {
	QueueName   string
	RoutingKeys []string
}

// LifecycleRoutingKeys: ключи маршрутизации всех событий жизненного цикла подписки.
func LifecycleRoutingKeys() []string {
	return []string{
		"subscription.pending",
		"subscription.activated",
		"subscription.canceled",
		"subscription.expired",
		"subscription.payment_failed",
	}
}

// GetLedgerQueues возвращает очереди, которые нужны сервису ledger.
func GetLedgerQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: LedgerQueue, RoutingKeys: LifecycleRoutingKeys()},
	}
}
