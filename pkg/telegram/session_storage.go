package telegram

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gotd/td/session"
	"go.uber.org/zap"
)

// DBSessionStorage хранит сессию бота в таблице bot_session.
type DBSessionStorage struct {
	DB    *sql.DB
	BotID int64
	Log   *zap.Logger
}

// LoadSession загружает сессию из БД.
func (s *DBSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	if s == nil || s.DB == nil {
		return nil, session.ErrNotFound
	}
	var data string
	err := s.DB.QueryRowContext(ctx, "SELECT data_json FROM bot_session WHERE bot_id = $1", s.BotID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		s.Log.Error("чтение сессии", zap.Int64("bot_id", s.BotID), zap.Error(err))
		return nil, err
	}
	return []byte(data), nil
}

// StoreSession сохраняет сессию, заменяя предыдущую.
func (s *DBSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if s == nil || s.DB == nil {
		return session.ErrNotFound
	}
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO bot_session (bot_id, data_json) VALUES ($1, $2) "+
			"ON CONFLICT (bot_id) DO UPDATE SET data_json = EXCLUDED.data_json, date_time = NOW()",
		s.BotID, string(data),
	)
	if err != nil {
		s.Log.Error("сохранение сессии", zap.Int64("bot_id", s.BotID), zap.Error(err))
		return err
	}
	return nil
}
