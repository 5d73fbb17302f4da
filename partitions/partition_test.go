package partitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBuildPartitions(t *testing.T) {
	tests := []struct {
		name     string
		builder  PartitionBuilder
		wantK    []int
		kpartMax int
	}{
		{
			name:     "block even",
			builder:  PartitionBuilder{NumCells: 12, TargetPartitionSize: 4},
			wantK:    []int{4, 4, 4},
			kpartMax: 4,
		},
		{
			name:     "block balanced remainder",
			builder:  PartitionBuilder{NumCells: 10, TargetPartitionSize: 3},
			wantK:    []int{2, 3, 2, 3},
			kpartMax: 3,
		},
		{
			name:     "single partition",
			builder:  PartitionBuilder{NumCells: 5, TargetPartitionSize: 100},
			wantK:    []int{5},
			kpartMax: 5,
		},
		{
			name:     "round robin",
			builder:  PartitionBuilder{NumCells: 7, TargetPartitionSize: 3, Strategy: RoundRobin},
			wantK:    []int{3, 2, 2},
			kpartMax: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := tt.builder.BuildPartitions()
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, layout.K())
			assert.Equal(t, tt.kpartMax, layout.KpartMax)
			assert.Equal(t, len(tt.wantK), layout.NumPartitions)
			assert.NoError(t, layout.ValidateLayout())
			for c := 0; c < tt.builder.NumCells; c++ {
				p := layout.GetPartition(c)
				assert.Contains(t, layout.Partitions[p].Cells, c)
			}
			assert.Equal(t, -1, layout.GetPartition(tt.builder.NumCells))
		})
	}
}

func TestBuildPartitionsErrors(t *testing.T) {
	_, err := (&PartitionBuilder{NumCells: 0, TargetPartitionSize: 1}).BuildPartitions()
	assert.Error(t, err)
	_, err = (&PartitionBuilder{NumCells: 4, TargetPartitionSize: 0}).BuildPartitions()
	assert.Error(t, err)
	_, err = (&PartitionBuilder{NumCells: 4, TargetPartitionSize: 1, Strategy: 9}).BuildPartitions()
	assert.Error(t, err)
}

func TestValidateLayoutDetectsBadKpartMax(t *testing.T) {
	layout, err := (&PartitionBuilder{NumCells: 6, TargetPartitionSize: 3}).BuildPartitions()
	require.NoError(t, err)
	layout.KpartMax = 5
	assert.Error(t, layout.ValidateLayout())
}

func TestRanges(t *testing.T) {
	block, err := (&PartitionBuilder{NumCells: 10, TargetPartitionSize: 3}).BuildPartitions()
	require.NoError(t, err)
	ranges, err := block.Ranges()
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 2}, {2, 5}, {5, 7}, {7, 10}}, ranges)

	rr, err := (&PartitionBuilder{NumCells: 10, TargetPartitionSize: 3, Strategy: RoundRobin}).BuildPartitions()
	require.NoError(t, err)
	_, err = rr.Ranges()
	assert.ErrorIs(t, err, ErrNotContiguous)
}

func TestScatterGather(t *testing.T) {
	for _, strategy := range []PartitionStrategy{BlockPartition, RoundRobin} {
		t.Run(strategy.String(), func(t *testing.T) {
			layout, err := (&PartitionBuilder{
				NumCells: 5, TargetPartitionSize: 2, Strategy: strategy,
			}).BuildPartitions()
			require.NoError(t, err)

			// two values per cell, partitions padded to 8 values each
			host := []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5}
			offsets := []int{0, 8, 16, 24}
			pa, err := layout.Scatter(host, 2, offsets)
			require.NoError(t, err)
			assert.Len(t, pa.GlobalData, 24)

			first := layout.Partitions[1].Cells[0]
			assert.Equal(t, host[2*first], pa.GetPartitionData(1)[0])
			assert.Nil(t, pa.GetPartitionData(3))

			back := make([]float64, len(host))
			require.NoError(t, layout.Gather(pa, back))
			assert.Equal(t, host, back)
		})
	}
}

func TestScatterErrors(t *testing.T) {
	layout, err := (&PartitionBuilder{NumCells: 4, TargetPartitionSize: 2}).BuildPartitions()
	require.NoError(t, err)
	_, err = layout.Scatter(make([]float64, 3), 1, []int{0, 2, 4})
	assert.Error(t, err)
	_, err = layout.Scatter(make([]float64, 4), 1, []int{0, 4})
	assert.Error(t, err)
	_, err = layout.Scatter(make([]float64, 4), 1, []int{0, 1, 4})
	assert.Error(t, err, "partition 0 does not fit before offset 1")
}

func TestNewBlockLayout(t *testing.T) {
	layout, err := NewBlockLayout([]int{3, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, 5, layout.TotalCells)
	assert.Equal(t, 3, layout.KpartMax)
	assert.Equal(t, []int{3, 0, 2}, layout.K())
	assert.Equal(t, 2, layout.GetPartition(4))

	ranges, err := layout.Ranges()
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 3}, {0, 0}, {3, 5}}, ranges)

	_, err = NewBlockLayout([]int{2, -1})
	assert.Error(t, err)
	_, err = NewBlockLayout([]int{0})
	assert.Error(t, err)
}
