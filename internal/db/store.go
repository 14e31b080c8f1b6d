package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps the connection. A nil Store or one without a connection is
// usable: reads find nothing and writes are dropped.
type Store struct {
	conn *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{conn: conn}
}

func (s *Store) Enabled() bool {
	return s != nil && s.conn != nil
}

func (s *Store) Preference(ctx context.Context, key string) (string, bool, error) {
	if !s.Enabled() {
		return "", false, nil
	}
	var pref Preference
	err := s.conn.WithContext(ctx).Where("key = ?", key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read preference %s: %w", key, err)
	}
	return pref.Value, true, nil
}

func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	if !s.Enabled() {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("preference key is required")
	}
	pref := Preference{Key: key, Value: value}
	err := s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("write preference %s: %w", key, err)
	}
	return nil
}

func (s *Store) Preferences(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	if !s.Enabled() {
		return out, nil
	}
	var prefs []Preference
	if err := s.conn.WithContext(ctx).Order("key").Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	for _, pref := range prefs {
		out[pref.Key] = pref.Value
	}
	return out, nil
}

// RecordQuizResult stores one finished round. Recording the same round
// twice is not an error.
func (s *Store) RecordQuizResult(ctx context.Context, result QuizResult) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.conn.WithContext(ctx).Create(&result).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("record quiz result %s: %w", result.RoundID, err)
	}
	return nil
}

func (s *Store) RecentResults(ctx context.Context, limit int) ([]QuizResult, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var results []QuizResult
	if err := s.conn.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	return results, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
