package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	q db.Querier
}

// NewPostgresSubscriptionRepository constructs a subscription repository bound to q.
func NewPostgresSubscriptionRepository(q db.Querier) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{q: q}
}

// Find returns the edge from subscriberID to channelID.
func (r *PostgresSubscriptionRepository) Find(ctx context.Context, subscriberID, channelID string) (models.Subscription, error) {
	var sub models.Subscription
	err := r.q.QueryRow(ctx, `
        SELECT id, subscriber_id, channel_id, created_at
        FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID).Scan(&sub.ID, &sub.SubscriberID, &sub.ChannelID, &sub.CreatedAt)
	if err != nil {
		return models.Subscription{}, mapReadError("select subscription", err)
	}
	return sub, nil
}

// Create persists a subscription edge. A duplicate edge returns ErrConflict.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub models.Subscription) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt)
	if err != nil {
		return mapWriteError("insert subscription", err)
	}
	return nil
}

// Delete removes a subscription edge by id.
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteForAccount removes every edge where accountID is the subscriber or the channel.
func (r *PostgresSubscriptionRepository) DeleteForAccount(ctx context.Context, accountID string) error {
	_, err := r.q.Exec(ctx, `
        DELETE FROM subscriptions WHERE subscriber_id = $1 OR channel_id = $1
    `, accountID)
	if err != nil {
		return fmt.Errorf("delete subscriptions for account: %w", err)
	}
	return nil
}

// Subscribers returns one page of accounts subscribed to channelID.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID string, req PageRequest) (Page[models.SubscriptionView], error) {
	page, err := paginate(ctx, r.q, listQuery{
		columns:     subscriptionViewColumns,
		from:        "subscriptions s JOIN accounts a ON a.id = s.subscriber_id WHERE s.channel_id = $1",
		args:        []any{channelID},
		sortColumns: map[string]string{"createdAt": "s.created_at"},
		defaultSort: "createdAt",
		tieBreak:    "s.id",
	}, req, scanSubscriptionView)
	if err != nil {
		return Page[models.SubscriptionView]{}, fmt.Errorf("list subscribers: %w", err)
	}
	return page, nil
}

// Channels returns one page of channels subscriberID is subscribed to.
func (r *PostgresSubscriptionRepository) Channels(ctx context.Context, subscriberID string, req PageRequest) (Page[models.SubscriptionView], error) {
	page, err := paginate(ctx, r.q, listQuery{
		columns:     subscriptionViewColumns,
		from:        "subscriptions s JOIN accounts a ON a.id = s.channel_id WHERE s.subscriber_id = $1",
		args:        []any{subscriberID},
		sortColumns: map[string]string{"createdAt": "s.created_at"},
		defaultSort: "createdAt",
		tieBreak:    "s.id",
	}, req, scanSubscriptionView)
	if err != nil {
		return Page[models.SubscriptionView]{}, fmt.Errorf("list subscribed channels: %w", err)
	}
	return page, nil
}

const subscriptionViewColumns = `s.id, ` + ownerColumns + `,
        (SELECT count(*) FROM subscriptions x WHERE x.channel_id = a.id), s.created_at`

func scanSubscriptionView(row pgx.Row) (models.SubscriptionView, error) {
	var view models.SubscriptionView
	dest := append([]any{&view.ID}, ownerDest(&view.Account)...)
	dest = append(dest, &view.SubscribersCount, &view.SubscribedAt)
	if err := row.Scan(dest...); err != nil {
		return models.SubscriptionView{}, err
	}
	return view, nil
}
