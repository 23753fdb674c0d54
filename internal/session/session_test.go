package session

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/navigation"
)

func TestNew_DefaultState(t *testing.T) {
	s := New("abc")
	require.Equal(t, "abc", s.ID)
	require.Equal(t, navigation.Home, s.View())

	u, _ := s.Upload()
	require.Nil(t, u)
	_, ok := s.Result()
	require.False(t, ok)
}

func TestNavigate_ClearsUpload(t *testing.T) {
	s := New("abc")
	_, err := s.Navigate(navigation.Prediction)
	require.NoError(t, err)

	s.SetUpload(&Upload{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Format: "png"})
	u, gen := s.Upload()
	require.NotNil(t, u)
	require.True(t, s.StoreResult(gen, diagnosis.Result{Confidence: 0.5}))

	// re-selecting the same view keeps everything
	changed, err := s.Navigate(navigation.Prediction)
	require.NoError(t, err)
	require.False(t, changed)
	u, _ = s.Upload()
	require.NotNil(t, u)

	changed, err = s.Navigate(navigation.Solution)
	require.NoError(t, err)
	require.True(t, changed)
	u, _ = s.Upload()
	require.Nil(t, u)
	_, ok := s.Result()
	require.False(t, ok)
}

func TestStoreResult_StaleGenerationDiscarded(t *testing.T) {
	s := New("abc")
	_, gen := s.Upload()

	_, err := s.Navigate(navigation.Prediction)
	require.NoError(t, err)

	require.False(t, s.StoreResult(gen, diagnosis.Result{Confidence: 0.9}))
	_, ok := s.Result()
	require.False(t, ok)
}

func TestSetUpload_SupersedesPendingResult(t *testing.T) {
	s := New("abc")
	_, err := s.Navigate(navigation.Prediction)
	require.NoError(t, err)

	s.SetUpload(&Upload{Format: "png"})
	_, first := s.Upload()
	s.SetUpload(&Upload{Format: "jpeg"})

	require.False(t, s.StoreResult(first, diagnosis.Result{Confidence: 0.7}))
	_, ok := s.Result()
	require.False(t, ok)

	u, second := s.Upload()
	require.Equal(t, "jpeg", u.Format)
	require.True(t, s.StoreResult(second, diagnosis.Result{Confidence: 0.4}))
}

func TestNavigate_UnknownViewKeepsState(t *testing.T) {
	s := New("abc")
	_, err := s.Navigate(navigation.Prediction)
	require.NoError(t, err)
	s.SetUpload(&Upload{Format: "jpeg"})

	_, err = s.Navigate(navigation.View("settings"))
	require.ErrorIs(t, err, navigation.ErrUnknownView)
	require.Equal(t, navigation.Prediction, s.View())
	u, _ := s.Upload()
	require.NotNil(t, u)
}

func TestMemoryRepository_GetOrCreate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	s1, err := repo.Get(ctx, "one")
	require.NoError(t, err)
	s2, err := repo.Get(ctx, "one")
	require.NoError(t, err)
	require.Same(t, s1, s2)

	fresh, err := repo.Get(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, fresh.ID)
	require.NotEqual(t, "one", fresh.ID)
	require.Equal(t, 2, repo.Len())

	require.NoError(t, repo.Delete(ctx, "one"))
	require.Equal(t, 1, repo.Len())

	s3, err := repo.Get(ctx, "one")
	require.NoError(t, err)
	require.NotSame(t, s1, s3)
	require.Equal(t, navigation.Home, s3.View())
}

func TestMemoryRepository_SessionsAreIndependent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a, _ := repo.Get(ctx, "a")
	b, _ := repo.Get(ctx, "b")
	_, err := a.Navigate(navigation.Solution)
	require.NoError(t, err)

	require.Equal(t, navigation.Solution, a.View())
	require.Equal(t, navigation.Home, b.View())
}

func TestMemoryRepository_ConcurrentGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*Session, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = repo.Get(ctx, "shared")
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		require.Same(t, got[0], s)
	}
	require.Equal(t, 1, repo.Len())
}
