package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTap_NudgesTowardsOrigin(t *testing.T) {
	assert.Equal(t, []Point{Pt(5, 5), Pt(4, 5)}, Tap(Pt(5, 5)))
}

func TestTap_AtOriginMovesRight(t *testing.T) {
	assert.Equal(t, []Point{Pt(0, 0), Pt(1, 0)}, Tap(Pt(0, 0)))
}

func TestTap_NegativeX(t *testing.T) {
	assert.Equal(t, []Point{Pt(-3, 7), Pt(-2, 7)}, Tap(Pt(-3, 7)))
}

func TestSwipe_Degenerate(t *testing.T) {
	path := Swipe(Pt(10, 10), Pt(10, 10))
	require.Len(t, path, 2)
	assert.Equal(t, Pt(10, 10), path[0])
	assert.Equal(t, Pt(9, 10), path[1])
}

func TestSwipe_Distinct(t *testing.T) {
	assert.Equal(t, []Point{Pt(1, 2), Pt(3, 4)}, Swipe(Pt(1, 2), Pt(3, 4)))
}

func TestPath(t *testing.T) {
	tests := []struct {
		name  string
		input []Point
		want  []Point
	}{
		{
			name:  "dedup without further nudge",
			input: []Point{Pt(0, 0), Pt(0, 0), Pt(5, 5), Pt(5, 5)},
			want:  []Point{Pt(0, 0), Pt(5, 5)},
		},
		{
			name:  "all identical falls back to tap",
			input: []Point{Pt(7, 3), Pt(7, 3), Pt(7, 3)},
			want:  []Point{Pt(7, 3), Pt(6, 3)},
		},
		{
			name:  "single point",
			input: []Point{Pt(0, 9)},
			want:  []Point{Pt(0, 9), Pt(1, 9)},
		},
		{
			name:  "valid path unchanged",
			input: []Point{Pt(1, 1), Pt(2, 2), Pt(3, 1)},
			want:  []Point{Pt(1, 1), Pt(2, 2), Pt(3, 1)},
		},
		{
			name:  "revisiting a point is not a duplicate",
			input: []Point{Pt(1, 1), Pt(2, 2), Pt(1, 1)},
			want:  []Point{Pt(1, 1), Pt(2, 2), Pt(1, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Path(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath_Empty(t *testing.T) {
	_, err := Path(nil)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestPath_DoesNotModifyInput(t *testing.T) {
	input := []Point{Pt(4, 4), Pt(4, 4)}
	_, err := Path(input)
	require.NoError(t, err)
	assert.Equal(t, []Point{Pt(4, 4), Pt(4, 4)}, input)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := [][]Point{
		{Pt(5, 5), Pt(5, 5)},
		{Pt(0, 0), Pt(0, 0), Pt(5, 5), Pt(5, 5)},
		{Pt(3, 3), Pt(8, 1), Pt(8, 1), Pt(2, 2)},
	}

	for _, in := range inputs {
		req := Request{Kind: KindPath, Strokes: []Stroke{{Path: in, Duration: time.Second}}}
		once, err := Normalize(req)
		require.NoError(t, err)
		require.NoError(t, once.Validate())

		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalizing a valid request must not change it")
	}
}

func TestValidate(t *testing.T) {
	ok := Request{Strokes: []Stroke{{Path: []Point{Pt(0, 0), Pt(1, 0)}}}}
	assert.NoError(t, ok.Validate())

	repeated := Request{Strokes: []Stroke{{Path: []Point{Pt(0, 0), Pt(1, 0), Pt(1, 0)}}}}
	err := repeated.Validate()
	require.Error(t, err)
	assert.True(t, IsDegenerate(err))
	var de *DegenerateError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Index)
	assert.Equal(t, Pt(1, 0), de.Point)

	short := Request{Strokes: []Stroke{{Path: []Point{Pt(0, 0)}}}}
	assert.True(t, IsDegenerate(short.Validate()))

	assert.ErrorIs(t, Request{}.Validate(), ErrEmptyPath)
}

func TestNewTap_DurationFloor(t *testing.T) {
	req := NewTap(Pt(100, 200), 0, -5*time.Millisecond)
	require.Len(t, req.Strokes, 1)
	assert.Equal(t, KindTap, req.Kind)
	assert.Equal(t, MinStrokeDuration, req.Strokes[0].Duration)
	assert.Equal(t, time.Duration(0), req.Strokes[0].Delay)
	assert.Equal(t, []Point{Pt(100, 200), Pt(99, 200)}, req.Strokes[0].Path)
}

func TestNewSwipe(t *testing.T) {
	req := NewSwipe(Pt(10, 10), Pt(10, 10), 200*time.Millisecond, 50*time.Millisecond)
	assert.Equal(t, KindSwipe, req.Kind)
	assert.Equal(t, []Point{Pt(10, 10), Pt(9, 10)}, req.Strokes[0].Path)
	assert.Equal(t, 200*time.Millisecond, req.Strokes[0].Duration)
	assert.Equal(t, 50*time.Millisecond, req.Strokes[0].Delay)
}

func TestNewPath_HoldFoldedIntoDuration(t *testing.T) {
	req, err := NewPath([]Point{Pt(0, 0), Pt(10, 10)}, 300*time.Millisecond, 150*time.Millisecond, 0)
	require.NoError(t, err)
	assert.Equal(t, 450*time.Millisecond, req.Strokes[0].Duration)
}

func TestNewPath_MoveFloor(t *testing.T) {
	req, err := NewPath([]Point{Pt(0, 0), Pt(10, 10)}, 10*time.Millisecond, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, MinPathMove, req.Strokes[0].Duration)
}

func TestNewPath_Empty(t *testing.T) {
	_, err := NewPath(nil, time.Second, 0, 0)
	assert.ErrorIs(t, err, ErrEmptyPath)
}
