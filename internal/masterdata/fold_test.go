package masterdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	require.Equal(t, "cong ty hai phong", Fold("  Công ty   Hải Phòng "))
	require.Equal(t, "da nang", Fold("Đà Nẵng"))
	require.Equal(t, "msc", Fold("MSC"))
	require.Equal(t, "", Fold("   "))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	require.Equal(t, `%100\%\_ok%`, likePattern("100%_OK"))
}
