package gormstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	"bazaar/contexts/trading/listing-engine/ports"
	"bazaar/internal/shared/outbox"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists listings and the notification outbox through gorm.
// It works against postgres in production and sqlite for local runs.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates the schema. Bootstrap calls it for the sqlite driver;
// postgres schemas are managed outside the process.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&listingModel{}, &outboxModel{})
}

func (r *Repository) GetListing(ctx context.Context, key entities.ListingKey) (entities.Listing, bool, error) {
	var row listingModel
	err := r.db.WithContext(ctx).
		Where("collection = ? AND token_id = ?", key.Collection, key.TokenID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Listing{}, false, nil
		}
		return entities.Listing{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListListings(ctx context.Context, filter ports.ListingFilter) ([]entities.Listing, string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	tx := r.db.WithContext(ctx).Model(&listingModel{})
	if filter.Collection != "" {
		tx = tx.Where("collection = ?", filter.Collection)
	}
	if filter.Seller != "" {
		tx = tx.Where("seller = ?", filter.Seller)
	}

	offset := decodeCursor(filter.Cursor)

	var rows []listingModel
	if err := tx.Order("listed_at DESC, collection ASC, token_id ASC").
		Offset(offset).
		Limit(limit + 1).
		Find(&rows).
		Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = encodeCursor(offset + limit)
		rows = rows[:limit]
	}

	items := make([]entities.Listing, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nextCursor, nil
}

func (r *Repository) CreateListingWithOutbox(ctx context.Context, listing entities.Listing, event ports.ListingEvent) error {
	outboxRow, err := outboxRowFromEvent(event)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := listingModelFromEntity(listing)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyListed
			}
			return err
		}
		if err := tx.Create(&outboxRow).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}
		return nil
	})
}

func (r *Repository) UpdateListingPriceWithOutbox(
	ctx context.Context,
	key entities.ListingKey,
	price decimal.Decimal,
	updatedAt time.Time,
	event ports.ListingEvent,
) error {
	outboxRow, err := outboxRowFromEvent(event)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&listingModel{}).
			Where("collection = ? AND token_id = ?", key.Collection, key.TokenID).
			Updates(map[string]any{
				"price":      price,
				"updated_at": updatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotListed
		}
		return tx.Create(&outboxRow).Error
	})
}

func (r *Repository) RemoveListingWithOutbox(ctx context.Context, key entities.ListingKey, event ports.ListingEvent) error {
	outboxRow, err := outboxRowFromEvent(event)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("collection = ? AND token_id = ?", key.Collection, key.TokenID).
			Delete(&listingModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotListed
		}
		return tx.Create(&outboxRow).Error
	})
}

// RemoveListing deletes without an outbox record; the settlement path emits
// its event only after the external steps succeed. Absent keys are a no-op.
func (r *Repository) RemoveListing(ctx context.Context, key entities.ListingKey) error {
	return r.db.WithContext(ctx).
		Where("collection = ? AND token_id = ?", key.Collection, key.TokenID).
		Delete(&listingModel{}).
		Error
}

func (r *Repository) PutListing(ctx context.Context, listing entities.Listing) error {
	row := listingModelFromEntity(listing)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (r *Repository) AppendEvent(ctx context.Context, event ports.ListingEvent) error {
	outboxRow, err := outboxRowFromEvent(event)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&outboxRow).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outbox.StatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) ListRecordedEvents(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite reports constraint violations by message only.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) int {
	if cursor == "" {
		return 0
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

type listingModel struct {
	Collection string          `gorm:"column:collection;primaryKey"`
	TokenID    uint64          `gorm:"column:token_id;primaryKey"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric"`
	Seller     string          `gorm:"column:seller"`
	ListedAt   time.Time       `gorm:"column:listed_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (listingModel) TableName() string {
	return "listings"
}

func listingModelFromEntity(listing entities.Listing) listingModel {
	return listingModel{
		Collection: listing.Collection,
		TokenID:    listing.TokenID,
		Price:      listing.Price,
		Seller:     listing.Seller,
		ListedAt:   listing.ListedAt.UTC(),
		UpdatedAt:  listing.UpdatedAt.UTC(),
	}
}

func (m listingModel) toEntity() entities.Listing {
	return entities.Listing{
		Collection: m.Collection,
		TokenID:    m.TokenID,
		Price:      m.Price,
		Seller:     m.Seller,
		ListedAt:   m.ListedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "listing_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      m.Payload,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func outboxRowFromEvent(event ports.ListingEvent) (outboxModel, error) {
	payload, err := json.Marshal(buildListingEnvelope(event))
	if err != nil {
		return outboxModel{}, err
	}
	return outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}, nil
}
