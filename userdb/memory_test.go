package userdb

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMemoryRepositoryCreateAndGet(t *testing.T) {
	c := qt.New(t)
	repo := NewMemoryRepository()
	ctx := context.Background()

	u := User{UserID: "u1", GameUserID: "g1", PublicKey: "pk"}
	err := repo.Create(ctx, u)
	c.Assert(err, qt.IsNil)

	got, err := repo.Get(ctx, "u1")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, u)
}

func TestMemoryRepositoryGetNotFound(t *testing.T) {
	c := qt.New(t)
	repo := NewMemoryRepository()

	_, err := repo.Get(context.Background(), "missing")
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestMemoryRepositoryDelete(t *testing.T) {
	c := qt.New(t)
	repo := NewMemoryRepository()
	ctx := context.Background()

	u := User{UserID: "u1"}
	err := repo.Create(ctx, u)
	c.Assert(err, qt.IsNil)

	err = repo.Delete(ctx, "u1")
	c.Assert(err, qt.IsNil)

	_, err = repo.Get(ctx, "u1")
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestMemoryRepositoryDeleteNotFound(t *testing.T) {
	c := qt.New(t)
	repo := NewMemoryRepository()

	err := repo.Delete(context.Background(), "missing")
	c.Assert(err, qt.Equals, ErrNotFound)
}
