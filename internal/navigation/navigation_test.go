package navigation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_StartsAtHome(t *testing.T) {
	require.Equal(t, Home, New().Current())
}

func TestSelect_AnyToAny(t *testing.T) {
	for _, from := range Views() {
		for _, to := range Views() {
			s := New()
			_, err := s.Select(from)
			require.NoError(t, err)

			changed, err := s.Select(to)
			require.NoError(t, err)
			require.Equal(t, to, s.Current())
			require.Equal(t, from != to, changed)
		}
	}
}

func TestSelect_SameViewIsNoop(t *testing.T) {
	s := New()
	changed, err := s.Select(Home)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, Home, s.Current())
}

func TestSelect_UnknownView(t *testing.T) {
	s := New()
	_, err := s.Select(Prediction)
	require.NoError(t, err)

	changed, err := s.Select(View("summary"))
	require.ErrorIs(t, err, ErrUnknownView)
	require.False(t, changed)
	require.Equal(t, Prediction, s.Current())
}

func TestParseView(t *testing.T) {
	v, err := ParseView(" Solution ")
	require.NoError(t, err)
	require.Equal(t, Solution, v)

	_, err = ParseView("")
	require.ErrorIs(t, err, ErrUnknownView)
}
