package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/repository"
)

// LendingService is the borrow/return/approve ledger. Every operation
// runs in one transaction that starts by locking the book row, and its
// guards run in a fixed order: existence, then permission, then state.
type LendingService struct {
	tx  repository.TxManager
	log *zap.Logger
}

func NewLendingService(tx repository.TxManager, log *zap.Logger) *LendingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LendingService{tx: tx, log: log}
}

// Borrow opens a borrow record of bookID for actor.
func (s *LendingService) Borrow(ctx context.Context, bookID uint64, actor Identity) (uint64, error) {
	var recordID uint64
	err := s.tx.WithinTx(ctx, func(r repository.Repos) error {
		book, err := lockBook(ctx, r, bookID)
		if err != nil {
			return err
		}
		if !book.Lendable() {
			return notPermitted("the requested book cannot be borrowed since it is archived or not shareable")
		}
		if book.OwnedBy(actor.UserID) {
			return notPermitted("you cannot borrow your own book")
		}
		open, err := r.Borrows().ExistsOpen(ctx, book.ID, actor.UserID)
		if err != nil {
			return internal("check open borrow", err)
		}
		if open {
			return notPermitted("the requested book is already borrowed")
		}
		rec := &model.BorrowRecord{BookID: book.ID, BorrowerID: actor.UserID}
		if err := r.Borrows().Create(ctx, rec); err != nil {
			// A concurrent borrow won the unique open-borrow key.
			if errors.Is(err, repository.ErrDuplicate) {
				return notPermitted("the requested book is already borrowed")
			}
			return internal("create borrow record", err)
		}
		recordID = rec.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("book borrowed",
		zap.Uint64("book_id", bookID), zap.Uint64("user_id", actor.UserID), zap.Uint64("record_id", recordID))
	return recordID, nil
}

// ReturnBorrowed marks actor's open borrow of bookID as returned.
func (s *LendingService) ReturnBorrowed(ctx context.Context, bookID uint64, actor Identity) (uint64, error) {
	var recordID uint64
	err := s.tx.WithinTx(ctx, func(r repository.Repos) error {
		book, err := lockBook(ctx, r, bookID)
		if err != nil {
			return err
		}
		if !book.Lendable() {
			return notPermitted("the requested book cannot be returned since it is archived or not shareable")
		}
		if book.OwnedBy(actor.UserID) {
			return notPermitted("you cannot return your own book")
		}
		rec, err := r.Borrows().FindOpen(ctx, book.ID, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return internal("load borrow record", err)
		}
		rec.Returned = true
		if err := r.Borrows().Update(ctx, rec); err != nil {
			return internal("update borrow record", err)
		}
		recordID = rec.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("book returned",
		zap.Uint64("book_id", bookID), zap.Uint64("user_id", actor.UserID), zap.Uint64("record_id", recordID))
	return recordID, nil
}

// ApproveReturn lets the owner confirm the oldest pending return of
// bookID.
func (s *LendingService) ApproveReturn(ctx context.Context, bookID uint64, actor Identity) (uint64, error) {
	var recordID uint64
	err := s.tx.WithinTx(ctx, func(r repository.Repos) error {
		book, err := lockBook(ctx, r, bookID)
		if err != nil {
			return err
		}
		if !book.OwnedBy(actor.UserID) {
			return notPermitted("you cannot approve the return of a book you do not own")
		}
		rec, err := r.Borrows().FindAwaitingApproval(ctx, book.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return notPermitted("the book is not returned yet, you cannot approve its return")
		}
		if err != nil {
			return internal("load borrow record", err)
		}
		rec.ReturnApproved = true
		if err := r.Borrows().Update(ctx, rec); err != nil {
			return internal("update borrow record", err)
		}
		recordID = rec.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("return approved",
		zap.Uint64("book_id", bookID), zap.Uint64("owner_id", actor.UserID), zap.Uint64("record_id", recordID))
	return recordID, nil
}

// ToggleShareable flips the shareable flag of a book actor owns.
func (s *LendingService) ToggleShareable(ctx context.Context, bookID uint64, actor Identity) (uint64, error) {
	return s.toggle(ctx, bookID, actor, "shareable", func(b *model.Book) { b.Shareable = !b.Shareable })
}

// ToggleArchived flips the archived flag of a book actor owns.
func (s *LendingService) ToggleArchived(ctx context.Context, bookID uint64, actor Identity) (uint64, error) {
	return s.toggle(ctx, bookID, actor, "archived", func(b *model.Book) { b.Archived = !b.Archived })
}

func (s *LendingService) toggle(ctx context.Context, bookID uint64, actor Identity, flag string, flip func(*model.Book)) (uint64, error) {
	err := s.tx.WithinTx(ctx, func(r repository.Repos) error {
		book, err := lockBook(ctx, r, bookID)
		if err != nil {
			return err
		}
		if !book.OwnedBy(actor.UserID) {
			return notPermitted("you cannot update the " + flag + " status of a book you do not own")
		}
		flip(book)
		modifier := actor.UserID
		book.LastModifiedBy = &modifier
		if err := r.Books().UpdateFlags(ctx, book); err != nil {
			return internal("update book", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return bookID, nil
}

func lockBook(ctx context.Context, r repository.Repos, bookID uint64) (*model.Book, error) {
	book, err := r.Books().FindByIDForUpdate(ctx, bookID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internal("load book", err)
	}
	return book, nil
}
