// Package store persists sessions and per-question results to MongoDB.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sinbadgame/internal/game"
)

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type SessionRecord struct {
	SessionID       string    `bson:"session_id" json:"sessionId"`
	StudentID       string    `bson:"student_id" json:"studentId"`
	Level           string    `bson:"level" json:"level"`
	Stage           int       `bson:"stage" json:"stage"`
	Status          string    `bson:"status" json:"status"`
	StartTime       time.Time `bson:"start_time" json:"startTime"`
	EndTime         time.Time `bson:"end_time,omitempty" json:"endTime,omitempty"`
	DurationSeconds int       `bson:"duration_seconds,omitempty" json:"durationSeconds,omitempty"`
}

type ResultRecord struct {
	SessionID         string    `bson:"session_id" json:"sessionId"`
	StudentID         string    `bson:"student_id" json:"studentId"`
	Level             string    `bson:"level" json:"level"`
	Stage             int       `bson:"stage" json:"stage"`
	QuestionNumber    int       `bson:"question_number" json:"questionNumber"`
	RequiredItems     []string  `bson:"required_items" json:"requiredItems"`
	SelectedItems     []string  `bson:"selected_items" json:"selectedItems"`
	CorrectSelections int       `bson:"correct_selections" json:"correctSelections"`
	TotalItems        int       `bson:"total_items" json:"totalItems"`
	Score             int       `bson:"score" json:"score"`
	IsCorrect         bool      `bson:"is_correct" json:"isCorrect"`
	CreatedAt         time.Time `bson:"created_at" json:"createdAt"`
}

// SessionSummary is a session with its ordered results and derived stats,
// the shape the results screen reads.
type SessionSummary struct {
	SessionRecord  `bson:",inline"`
	Results        []ResultRecord `json:"results"`
	TotalQuestions int            `json:"totalQuestions"`
	CorrectAnswers int            `json:"correctAnswers"`
	Score          int            `json:"score"`
	Accuracy       float64        `json:"accuracy"`
}

// ResultSink implements game.ResultSink over the game_sessions and
// game_results collections.
type ResultSink struct {
	sessions *mongo.Collection
	results  *mongo.Collection
}

func NewResultSink(db *mongo.Database) *ResultSink {
	return &ResultSink{
		sessions: db.Collection("game_sessions"),
		results:  db.Collection("game_results"),
	}
}

// CreateSession inserts the in-progress session row at game start.
func (s *ResultSink) CreateSession(ctx context.Context, rec SessionRecord) error {
	rec.Status = "in-progress"
	rec.StartTime = time.Now().UTC()
	_, err := s.sessions.InsertOne(ctx, rec)
	return err
}

// RecordResult appends one question's outcome. The session row supplies the
// denormalized student/level/stage fields.
func (s *ResultSink) RecordResult(ctx context.Context, sessionID string, r game.Result) error {
	var sess SessionRecord
	if err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&sess); err != nil {
		return fmt.Errorf("find session %s: %w", sessionID, err)
	}
	score := 0
	if r.IsCorrect {
		score = 1
	}
	rec := ResultRecord{
		SessionID:         sessionID,
		StudentID:         sess.StudentID,
		Level:             sess.Level,
		Stage:             sess.Stage,
		QuestionNumber:    r.QuestionNumber,
		RequiredItems:     r.RequiredItems,
		SelectedItems:     r.SelectedItems,
		CorrectSelections: r.CorrectSelections,
		TotalItems:        r.TotalRequired,
		Score:             score,
		IsCorrect:         r.IsCorrect,
		CreatedAt:         time.Now().UTC(),
	}
	_, err := s.results.InsertOne(ctx, rec)
	return err
}

// CompleteSession marks the session finished with its total duration.
func (s *ResultSink) CompleteSession(ctx context.Context, sessionID string, durationSeconds int) error {
	_, err := s.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"status":           "completed",
			"end_time":         time.Now().UTC(),
			"duration_seconds": durationSeconds,
		}},
	)
	return err
}

// GetSession loads a session with its results and derived statistics.
func (s *ResultSink) GetSession(ctx context.Context, sessionID string) (*SessionSummary, error) {
	var sess SessionRecord
	if err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&sess); err != nil {
		return nil, fmt.Errorf("find session %s: %w", sessionID, err)
	}
	results, err := s.SessionResults(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := &SessionSummary{SessionRecord: sess, Results: results}
	summary.TotalQuestions = len(results)
	for _, r := range results {
		if r.IsCorrect {
			summary.CorrectAnswers++
		}
		summary.Score += r.Score
	}
	if summary.TotalQuestions > 0 {
		summary.Accuracy = float64(summary.CorrectAnswers) / float64(summary.TotalQuestions) * 100
	}
	return summary, nil
}

// SessionResults returns a session's results ordered by question number.
func (s *ResultSink) SessionResults(ctx context.Context, sessionID string) ([]ResultRecord, error) {
	cur, err := s.results.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "question_number", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []ResultRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
