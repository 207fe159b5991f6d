package exam

import "context"

// Store is the persistence collaborator. Lookups of a missing row return an
// error wrapping ErrNotFound.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUserPassword(ctx context.Context, id int64, hash string) error

	CreateTest(ctx context.Context, t Test) (Test, error)
	GetTest(ctx context.Context, id int64) (Test, error) // with questions, ordered
	ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error)
	ListTestsByCreator(ctx context.Context, creatorID int64) ([]Test, error)
	UpdateTest(ctx context.Context, t Test) (Test, error)
	DeleteTest(ctx context.Context, id int64) error

	CreateQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	ListQuestions(ctx context.Context, testID int64) ([]Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	InsertResult(ctx context.Context, r Result) (Result, error)
	GetResult(ctx context.Context, id int64) (Result, error)
	ListResultsByUser(ctx context.Context, userID int64) ([]Result, error)
	ListResultsByTest(ctx context.Context, testID int64) ([]Result, error)
	CountResultsByTest(ctx context.Context, testID int64) (int, error)

	Ping(ctx context.Context) error
}
