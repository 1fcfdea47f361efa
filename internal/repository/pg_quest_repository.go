package repository

import (
	"context"
	"errors"
	"fmt"

	"quest-maker/internal/interfaces"
	"quest-maker/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ interfaces.QuestRepository = (*pgQuestRepository)(nil)

const (
	upsertQuestQuery = `
        INSERT INTO quests (id, title, icon, document)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            icon = EXCLUDED.icon,
            document = EXCLUDED.document,
            updated_at = NOW()
        RETURNING created_at, updated_at`
	getQuestByIDQuery = `SELECT id, title, icon, document, created_at, updated_at FROM quests WHERE id = $1`
	listQuestsQuery   = `SELECT id, title, icon, updated_at FROM quests ORDER BY updated_at DESC, id LIMIT $1 OFFSET $2`
	deleteQuestQuery  = `DELETE FROM quests WHERE id = $1`
)

type pgQuestRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgQuestRepository создает библиотеку квестов поверх PostgreSQL.
func NewPgQuestRepository(db *pgxpool.Pool, logger *zap.Logger) interfaces.QuestRepository {
	return &pgQuestRepository{
		db:     db,
		logger: logger.Named("PgQuestRepo"),
	}
}

func (r *pgQuestRepository) Save(ctx context.Context, quest *models.SavedQuest) (uuid.UUID, error) {
	if quest.ID == uuid.Nil {
		quest.ID = uuid.New()
	}
	logFields := []zap.Field{zap.String("questID", quest.ID.String()), zap.String("title", quest.Title)}
	r.logger.Debug("Saving quest", logFields...)

	// string, а не []byte: документ уходит в колонку json без перекодирования
	err := r.db.QueryRow(ctx, upsertQuestQuery, quest.ID, quest.Title, quest.Icon, string(quest.Document)).
		Scan(&quest.CreatedAt, &quest.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to save quest", append(logFields, zap.Error(err))...)
		return uuid.Nil, fmt.Errorf("failed to save quest %s: %w", quest.ID, err)
	}

	r.logger.Info("Quest saved", logFields...)
	return quest.ID, nil
}

func (r *pgQuestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SavedQuest, error) {
	logFields := []zap.Field{zap.String("questID", id.String())}

	var quest models.SavedQuest
	err := pgxscan.Get(ctx, r.db, &quest, getQuestByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Quest not found", logFields...)
			return nil, models.ErrQuestNotFound
		}
		r.logger.Error("Failed to get quest", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get quest %s: %w", id, err)
	}
	return &quest, nil
}

func (r *pgQuestRepository) List(ctx context.Context, limit, offset int) ([]models.SavedQuestSummary, error) {
	quests := make([]models.SavedQuestSummary, 0)
	err := pgxscan.Select(ctx, r.db, &quests, listQuestsQuery, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list quests", zap.Int("limit", limit), zap.Int("offset", offset), zap.Error(err))
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	return quests, nil
}

func (r *pgQuestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	logFields := []zap.Field{zap.String("questID", id.String())}

	tag, err := r.db.Exec(ctx, deleteQuestQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete quest", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to delete quest %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Quest to delete not found", logFields...)
		return models.ErrQuestNotFound
	}

	r.logger.Info("Quest deleted", logFields...)
	return nil
}
