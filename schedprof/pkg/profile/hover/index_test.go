package hover

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

func TestIntervalRowLongCover(t *testing.T) {
	var row intervalRow
	row.add(0, 0, 1000)
	for i := 1; i <= 100; i++ {
		start := model.Milliseconds(i * 5)
		row.add(i, start, start+1)
	}

	require.Equal(t, 0, row.find(3))
	require.Equal(t, 10, row.find(50))
	require.Equal(t, 10, row.find(50.5))
	// Between the short intervals only the long one covers t.
	require.Equal(t, 0, row.find(52))
	require.Equal(t, 0, row.find(999))
	require.Equal(t, -1, row.find(1000))
	require.Equal(t, -1, row.find(-1))
}
