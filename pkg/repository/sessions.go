package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNoSession is returned by Latest when no unexpired session exists.
var ErrNoSession = errors.New("no active kite session")

// istZone is Indian Standard Time. Kite sessions expire at 06:00 IST.
var istZone = time.FixedZone("IST", 5*60*60+30*60)

const sessionResetHour = 6

// Session is a stored Kite access token.
type Session struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	UserName    string    `db:"user_name" json:"user_name"`
	AccessToken string    `db:"access_token" json:"-"`
	PublicToken string    `db:"public_token" json:"public_token"`
	LoginTime   string    `db:"login_time" json:"login_time"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository stores the current Kite session.
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	// Latest returns the most recent session that has not expired at now.
	Latest(ctx context.Context, now time.Time) (*Session, error)
	Health(ctx context.Context) error
	Name() string
}

// NextExpiry returns the next 06:00 IST strictly after t.
func NextExpiry(t time.Time) time.Time {
	local := t.In(istZone)
	reset := time.Date(local.Year(), local.Month(), local.Day(), sessionResetHour, 0, 0, 0, istZone)
	if !reset.After(local) {
		reset = reset.AddDate(0, 0, 1)
	}
	return reset.UTC()
}

// prepare fills in the id and timestamps of a session about to be saved.
func prepare(session *Session, now time.Time) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now.UTC()
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = NextExpiry(session.CreatedAt)
	}
}

// sessionRepository implements SessionRepository on Postgres.
type sessionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionRepository creates a Postgres-backed session repository.
func NewSessionRepository(db *sqlx.DB, logger *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (r *sessionRepository) Name() string { return "postgres" }

// Save inserts a new session.
func (r *sessionRepository) Save(ctx context.Context, session *Session) error {
	prepare(session, r.now())

	query := `
		INSERT INTO kite_sessions (
			id, user_id, user_name, access_token, public_token, login_time, created_at, expires_at
		) VALUES (
			:id, :user_id, :user_name, :access_token, :public_token, :login_time, :created_at, :expires_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		r.logger.Error("Failed to save kite session", zap.Error(err), zap.String("user_id", session.UserID))
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.logger.Info("Kite session saved",
		zap.String("id", session.ID.String()),
		zap.String("user_id", session.UserID),
		zap.Time("expires_at", session.ExpiresAt))
	return nil
}

// Latest retrieves the newest unexpired session.
func (r *sessionRepository) Latest(ctx context.Context, now time.Time) (*Session, error) {
	var session Session
	query := `
		SELECT id, user_id, user_name, access_token, public_token, login_time, created_at, expires_at
		FROM kite_sessions
		WHERE expires_at > $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &session, query, now.UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSession
		}
		r.logger.Error("Failed to get latest kite session", zap.Error(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) Health(ctx context.Context) error {
	var result int
	if err := r.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("session store unreachable: %w", err)
	}
	return nil
}
