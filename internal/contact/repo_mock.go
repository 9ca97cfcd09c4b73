package contact

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

var _ messagesRepo = (*repoMock)(nil)

type repoMock struct {
	Messages map[string]Message
	AddErr   error
	mutex    sync.Mutex
}

func NewRepoMock() *repoMock {
	return &repoMock{
		Messages: map[string]Message{},
	}
}

func (r *repoMock) Add(_ context.Context, m *Message) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.AddErr != nil {
		return r.AddErr
	}
	m.ID = fmt.Sprintf("msg-%d", len(r.Messages)+1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.Messages[m.ID] = *m
	return nil
}

func (r *repoMock) List(_ context.Context, limit int) ([]Message, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var messages []Message
	for _, m := range r.Messages {
		messages = append(messages, m)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.Messages[id]; !ok {
		return ErrMessageNotFound
	}
	delete(r.Messages, id)
	return nil
}

func (r *repoMock) CountAll(_ context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Messages), nil
}

func (r *repoMock) CountSince(_ context.Context, since time.Time) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	count := 0
	for _, m := range r.Messages {
		if !m.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
