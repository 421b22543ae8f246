package events

// Topic constants for domain events emitted by the platform.
const (
	TopicSaleCommitted  = "sale.committed"
	TopicSaleFailed     = "sale.commit_failed"
	TopicPointsRedeemed = "loyalty.points_redeemed"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicSaleCommitted,
		TopicSaleFailed,
		TopicPointsRedeemed,
	}
}
