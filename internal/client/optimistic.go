package client

import (
	"context"
	"slices"
	"sync"
)

// Command is a local change applied before its remote call runs. When Run
// fails, Revert undoes Apply on whatever the list looks like by then.
type Command[T any] struct {
	Apply  func(items []T) []T
	Revert func(items []T) []T
	Run    func(ctx context.Context) error
}

// List is a mutex-guarded slice changed through commands.
type List[T any] struct {
	mu    sync.Mutex
	items []T
}

func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

func (l *List[T]) Set(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
}

func (l *List[T]) update(f func([]T) []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = f(l.items)
}

// Execute applies cmd, runs it, and reverts it if the run fails.
func (l *List[T]) Execute(ctx context.Context, cmd Command[T]) error {
	l.update(cmd.Apply)
	if err := cmd.Run(ctx); err != nil {
		l.update(cmd.Revert)
		return err
	}
	return nil
}

// RemoveCommand drops the item with key id and puts it back at the same
// position on failure.
func RemoveCommand[T any](id string, key func(T) string, run func(context.Context) error) Command[T] {
	var (
		removed T
		index   = -1
	)
	return Command[T]{
		Apply: func(items []T) []T {
			index = slices.IndexFunc(items, func(it T) bool { return key(it) == id })
			if index < 0 {
				return items
			}
			removed = items[index]
			return slices.Delete(items, index, index+1)
		},
		Revert: func(items []T) []T {
			if index < 0 || slices.ContainsFunc(items, func(it T) bool { return key(it) == id }) {
				return items
			}
			return slices.Insert(items, min(index, len(items)), removed)
		},
		Run: run,
	}
}

// UpdateCommand replaces the item with the same key as next and restores
// the previous value on failure.
func UpdateCommand[T any](next T, key func(T) string, run func(context.Context) error) Command[T] {
	id := key(next)
	var (
		previous T
		found    bool
	)
	replace := func(items []T, v T) []T {
		if i := slices.IndexFunc(items, func(it T) bool { return key(it) == id }); i >= 0 {
			items[i] = v
		}
		return items
	}
	return Command[T]{
		Apply: func(items []T) []T {
			i := slices.IndexFunc(items, func(it T) bool { return key(it) == id })
			if i < 0 {
				return items
			}
			previous, found = items[i], true
			return replace(items, next)
		},
		Revert: func(items []T) []T {
			if !found {
				return items
			}
			return replace(items, previous)
		},
		Run: run,
	}
}
