package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizly-backend/internal/models"
)

type QuizRepo struct {
	pool *pgxpool.Pool
}

func NewQuizRepo(pool *pgxpool.Pool) *QuizRepo {
	return &QuizRepo{pool: pool}
}

// CreateWithQuestions inserts the quiz, its questions and the join rows in a
// single transaction. Nothing is written if any question fails validation.
func (r *QuizRepo) CreateWithQuestions(ctx context.Context, q *models.Quiz, questions []*models.Question) error {
	for i, question := range questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin quiz transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO quizzes (id, user_id, title, description, video_url)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		q.ID, q.UserID, q.Title, q.Description, q.VideoURL,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert quiz: %w", err)
	}

	for i, question := range questions {
		if err := insertQuestion(ctx, tx, question); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}

		_, err := tx.Exec(ctx,
			"INSERT INTO quiz_questions (quiz_id, question_id, position) VALUES ($1, $2, $3)",
			q.ID, question.ID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to link question %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit quiz: %w", err)
	}

	q.Questions = questions
	return nil
}

func insertQuestion(ctx context.Context, tx pgx.Tx, question *models.Question) error {
	optionsBytes, err := json.Marshal(question.QuestionOptions)
	if err != nil {
		return err
	}

	question.ID = uuid.New()
	return tx.QueryRow(ctx,
		`INSERT INTO questions (id, question_title, question_options, answer)
		 VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		question.ID, question.QuestionTitle, optionsBytes, question.Answer,
	).Scan(&question.CreatedAt, &question.UpdatedAt)
}

func (r *QuizRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	q := &models.Quiz{}
	query := `SELECT id, user_id, title, description, video_url, created_at, updated_at
		FROM quizzes WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.UserID, &q.Title, &q.Description, &q.VideoURL, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := r.attachQuestions(ctx, []*models.Quiz{q}); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *QuizRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Quiz, error) {
	query := `SELECT id, user_id, title, description, video_url, created_at, updated_at
		FROM quizzes WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := make([]*models.Quiz, 0)
	for rows.Next() {
		q := &models.Quiz{}
		err := rows.Scan(&q.ID, &q.UserID, &q.Title, &q.Description, &q.VideoURL, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachQuestions(ctx, quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// attachQuestions loads the linked questions of every quiz in one query,
// keeping the generation order.
func (r *QuizRepo) attachQuestions(ctx context.Context, quizzes []*models.Quiz) error {
	if len(quizzes) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*models.Quiz, len(quizzes))
	ids := make([]uuid.UUID, 0, len(quizzes))
	for _, q := range quizzes {
		q.Questions = make([]*models.Question, 0)
		byID[q.ID] = q
		ids = append(ids, q.ID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT qq.quiz_id, qs.id, qs.question_title, qs.question_options, qs.answer, qs.created_at, qs.updated_at
		FROM quiz_questions qq
		JOIN questions qs ON qs.id = qq.question_id
		WHERE qq.quiz_id = ANY($1)
		ORDER BY qq.quiz_id, qq.position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var quizID uuid.UUID
		var optionsBytes []byte
		question := &models.Question{}
		if err := rows.Scan(&quizID, &question.ID, &question.QuestionTitle, &optionsBytes,
			&question.Answer, &question.CreatedAt, &question.UpdatedAt); err != nil {
			return err
		}
		if err := json.Unmarshal(optionsBytes, &question.QuestionOptions); err != nil {
			return fmt.Errorf("corrupt options for question %s: %w", question.ID, err)
		}
		if q, ok := byID[quizID]; ok {
			q.Questions = append(q.Questions, question)
		}
	}
	return rows.Err()
}

// UpdateDetails patches title and/or description; nil arguments keep the
// stored value. video_url and question links are never touched here.
func (r *QuizRepo) UpdateDetails(ctx context.Context, id uuid.UUID, title, description *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET title = COALESCE($1, title), description = COALESCE($2, description),
		 updated_at = NOW() WHERE id = $3`,
		title, description, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *QuizRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM quizzes WHERE id = $1", id)
	return err
}
