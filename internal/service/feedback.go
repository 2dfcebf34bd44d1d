package service

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/repository"
)

// FeedbackInput rates a book from 0 to 5 with a comment.
type FeedbackInput struct {
	BookID  uint64  `json:"bookId"`
	Note    float64 `json:"note"`
	Comment string  `json:"comment"`
}

func (in FeedbackInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.BookID, validation.Required),
		validation.Field(&in.Note, validation.Min(0.0), validation.Max(5.0)),
		validation.Field(&in.Comment, validation.Required, validation.Length(1, 2000)),
	)
}

// FeedbackView is a feedback as shown to a given viewer.
type FeedbackView struct {
	ID          uint64    `json:"id"`
	Note        float64   `json:"note"`
	Comment     string    `json:"comment"`
	OwnFeedback bool      `json:"ownFeedback"`
	CreatedAt   time.Time `json:"createdAt"`
}

type FeedbackService struct {
	tx repository.TxManager
}

func NewFeedbackService(tx repository.TxManager) *FeedbackService {
	return &FeedbackService{tx: tx}
}

// Submit records actor's feedback on a lendable book they do not own.
func (s *FeedbackService) Submit(ctx context.Context, actor Identity, in FeedbackInput) (uint64, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validationFailed(in.Validate()); err != nil {
		return 0, err
	}
	r := s.tx.Repos()
	book, err := r.Books().FindByID(ctx, in.BookID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, internal("load book", err)
	}
	if !book.Lendable() {
		return 0, notPermitted("you cannot give feedback for an archived or not shareable book")
	}
	if book.OwnedBy(actor.UserID) {
		return 0, notPermitted("you cannot give feedback to your own book")
	}
	f := &model.Feedback{BookID: book.ID, AuthorID: actor.UserID, Note: in.Note, Comment: in.Comment}
	if err := r.Feedbacks().Create(ctx, f); err != nil {
		return 0, internal("create feedback", err)
	}
	return f.ID, nil
}

// ListByBook lists the feedback of bookID, flagging actor's own entries.
func (s *FeedbackService) ListByBook(ctx context.Context, actor Identity, bookID uint64, p Page) (PageResult[FeedbackView], error) {
	p = p.normalize()
	rows, total, err := s.tx.Repos().Feedbacks().ListByBook(ctx, bookID, p.Size, p.offset())
	if err != nil {
		return PageResult[FeedbackView]{}, internal("list feedback", err)
	}
	views := make([]FeedbackView, 0, len(rows))
	for _, f := range rows {
		views = append(views, FeedbackView{
			ID:          f.ID,
			Note:        f.Note,
			Comment:     f.Comment,
			OwnFeedback: f.AuthorID == actor.UserID,
			CreatedAt:   f.CreatedAt,
		})
	}
	return newPageResult(views, total, p), nil
}
