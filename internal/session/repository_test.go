package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	sess := New("remote work", []string{"productivity"}, "Argue against remote work.")

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sess.ID, sess.Topic, sqlmock.AnyArg(), sess.Stance, sess.Status, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), sess); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	sess, err := repo.GetByID(context.Background(), id)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if sess != nil {
		t.Error("expected nil session")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	id := uuid.New()
	turnID := uuid.New()
	now := time.Now()

	sessionRows := sqlmock.NewRows([]string{"id", "topic", "subtopics", "stance", "status", "created_at", "updated_at"}).
		AddRow(id, "remote work", "{productivity,isolation}", "Argue against remote work.", "active", now, now)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
		WithArgs(id).
		WillReturnRows(sessionRows)

	turnRows := sqlmock.NewRows([]string{"id", "session_id", "idx", "speaker", "text", "passage_ids", "created_at"}).
		AddRow(turnID, id, 0, "user", "Remote work increases productivity.", "{}", now)

	mock.ExpectQuery("SELECT (.+) FROM turns WHERE session_id").
		WithArgs(id).
		WillReturnRows(turnRows)

	scoreRows := sqlmock.NewRows([]string{"drift", "hallucination", "created_at"})
	mock.ExpectQuery("SELECT (.+) FROM turn_scores WHERE turn_id").
		WithArgs(turnID).
		WillReturnRows(scoreRows)

	sess, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if sess.Topic != "remote work" {
		t.Errorf("expected topic 'remote work', got %q", sess.Topic)
	}
	if len(sess.Subtopics) != 2 {
		t.Errorf("expected 2 subtopics, got %d", len(sess.Subtopics))
	}
	if len(sess.Turns) != 1 || sess.Turns[0].Index != 0 {
		t.Errorf("expected one turn at index 0, got %+v", sess.Turns)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_AppendTurn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	turn := &Turn{
		SessionID:  uuid.New(),
		Index:      1,
		Speaker:    SpeakerAssistant,
		Text:       "On the contrary, commuting time is not the whole story.",
		PassageIDs: []uuid.UUID{uuid.New()},
	}

	mock.ExpectExec("INSERT INTO turns").
		WithArgs(sqlmock.AnyArg(), turn.SessionID, turn.Index, turn.Speaker, turn.Text, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.AppendTurn(context.Background(), turn); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if turn.ID == uuid.Nil {
		t.Error("expected turn ID to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_AppendScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)
	turnID := uuid.New()

	mock.ExpectExec("INSERT INTO turn_scores").
		WithArgs(sqlmock.AnyArg(), turnID, 0.2, 0.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	score := Score{Drift: 0.2, Hallucination: 0.5}
	if err := repo.AppendScore(context.Background(), turnID, score); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
