package board

import (
	"errors"
	"testing"

	"github.com/nstehr/rampart/rampart-core/model"
)

func TestInBounds(t *testing.T) {
	b := New(model.ArenaSize)

	tests := []struct {
		c    model.Cell
		want bool
	}{
		{model.Cell{X: 13, Y: 0}, true},
		{model.Cell{X: 14, Y: 0}, true},
		{model.Cell{X: 12, Y: 0}, false},
		{model.Cell{X: 15, Y: 0}, false},
		{model.Cell{X: 0, Y: 13}, true},
		{model.Cell{X: 27, Y: 13}, true},
		{model.Cell{X: 0, Y: 14}, true},
		{model.Cell{X: 27, Y: 14}, true},
		{model.Cell{X: 0, Y: 12}, false},
		{model.Cell{X: 13, Y: 27}, true},
		{model.Cell{X: 12, Y: 27}, false},
		{model.Cell{X: -1, Y: 13}, false},
		{model.Cell{X: 28, Y: 14}, false},
		{model.Cell{X: 14, Y: 28}, false},
	}
	for _, tc := range tests {
		if got := b.InBounds(tc.c); got != tc.want {
			t.Errorf("InBounds(%s) = %v, want %v", tc.c, got, tc.want)
		}
	}
}

func TestEdgeCells(t *testing.T) {
	b := New(model.ArenaSize)

	tests := []struct {
		edge        Edge
		first, last model.Cell
	}{
		{TopRight, model.Cell{X: 14, Y: 27}, model.Cell{X: 27, Y: 14}},
		{TopLeft, model.Cell{X: 13, Y: 27}, model.Cell{X: 0, Y: 14}},
		{BottomLeft, model.Cell{X: 13, Y: 0}, model.Cell{X: 0, Y: 13}},
		{BottomRight, model.Cell{X: 14, Y: 0}, model.Cell{X: 27, Y: 13}},
	}
	for _, tc := range tests {
		cells := b.EdgeCells(tc.edge)
		if len(cells) != model.HalfArena {
			t.Fatalf("EdgeCells(%s) has %d cells, want %d", tc.edge, len(cells), model.HalfArena)
		}
		if cells[0] != tc.first || cells[len(cells)-1] != tc.last {
			t.Errorf("EdgeCells(%s) = %s..%s, want %s..%s", tc.edge, cells[0], cells[len(cells)-1], tc.first, tc.last)
		}
		for _, c := range cells {
			if !b.InBounds(c) {
				t.Errorf("edge cell %s of %s is out of bounds", c, tc.edge)
			}
		}
	}
}

func TestNeighborsRadius(t *testing.T) {
	b := New(model.ArenaSize)
	centre := model.Cell{X: 13, Y: 10}

	if got := len(b.Neighbors(centre, 1)); got != 4 {
		t.Errorf("Neighbors(radius 1) returned %d cells, want 4", got)
	}
	if got := len(b.Neighbors(centre, 1.5)); got != 8 {
		t.Errorf("Neighbors(radius 1.5) returned %d cells, want 8", got)
	}
	for _, n := range b.Neighbors(centre, 1.5) {
		if n == centre {
			t.Error("Neighbors should not include the centre cell")
		}
	}

	// Bottom corner: only cells inside the diamond are returned.
	corner := model.Cell{X: 13, Y: 0}
	for _, n := range b.Neighbors(corner, 1.5) {
		if !b.InBounds(n) {
			t.Errorf("Neighbors(%s) returned out-of-bounds cell %s", corner, n)
		}
	}
	if got := len(b.Neighbors(corner, 1)); got != 2 {
		t.Errorf("Neighbors(%s, 1) returned %d cells, want 2", corner, got)
	}
}

func TestAddUnitRejectsSecondStationary(t *testing.T) {
	b := New(model.ArenaSize)
	c := model.Cell{X: 10, Y: 10}

	if err := b.AddUnit(Unit{Type: model.Filter, X: c.X, Y: c.Y}); err != nil {
		t.Fatalf("first AddUnit: %v", err)
	}
	err := b.AddUnit(Unit{Type: model.Destructor, X: c.X, Y: c.Y})
	if !errors.Is(err, ErrOccupied) {
		t.Errorf("second stationary AddUnit error = %v, want ErrOccupied", err)
	}

	// Mobile units may share the cell during decoding.
	if err := b.AddUnit(Unit{Type: model.Ping, X: c.X, Y: c.Y}); err != nil {
		t.Errorf("mobile AddUnit on occupied cell: %v", err)
	}
	if got := len(b.UnitsAt(c)); got != 2 {
		t.Errorf("UnitsAt = %d units, want 2", got)
	}
}

func TestAddUnitOutOfBounds(t *testing.T) {
	b := New(model.ArenaSize)
	err := b.AddUnit(Unit{Type: model.Filter, X: 0, Y: 0})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("AddUnit out of bounds error = %v, want ErrOutOfBounds", err)
	}
	if units := b.UnitsAt(model.Cell{X: 0, Y: 0}); units != nil {
		t.Errorf("UnitsAt out of bounds = %v, want nil", units)
	}
}

func TestRemoveUnitAndClone(t *testing.T) {
	b := New(model.ArenaSize)
	c := model.Cell{X: 13, Y: 0}
	for range 3 {
		if err := b.AddUnit(Unit{Type: model.Ping, X: c.X, Y: c.Y}); err != nil {
			t.Fatal(err)
		}
	}

	clone := b.Clone()
	if !b.RemoveUnit(c, model.Ping) {
		t.Fatal("RemoveUnit returned false")
	}
	if got := len(b.UnitsAt(c)); got != 2 {
		t.Errorf("after RemoveUnit: %d units, want 2", got)
	}
	if got := len(clone.UnitsAt(c)); got != 3 {
		t.Errorf("clone changed with original: %d units, want 3", got)
	}
	if b.RemoveUnit(c, model.EMP) {
		t.Error("RemoveUnit of absent type returned true")
	}
}

func TestMarkPendingRemoval(t *testing.T) {
	b := New(model.ArenaSize)
	c := model.Cell{X: 5, Y: 12}
	if b.MarkPendingRemoval(c) {
		t.Error("MarkPendingRemoval on empty cell returned true")
	}
	_ = b.AddUnit(Unit{Type: model.Encryptor, X: c.X, Y: c.Y})
	if !b.MarkPendingRemoval(c) {
		t.Fatal("MarkPendingRemoval returned false")
	}
	u, ok := b.StationaryAt(c)
	if !ok || !u.PendingRemoval {
		t.Errorf("StationaryAt = %+v, %v; want pending removal", u, ok)
	}
}

func TestRowAndHalf(t *testing.T) {
	b := New(model.ArenaSize)
	if got := len(b.Row(13)); got != 28 {
		t.Errorf("len(Row(13)) = %d, want 28", got)
	}
	if got := len(b.Row(0)); got != 2 {
		t.Errorf("len(Row(0)) = %d, want 2", got)
	}
	if !b.OwnHalf(model.Cell{X: 5, Y: 13}, 0) || b.OwnHalf(model.Cell{X: 5, Y: 14}, 0) {
		t.Error("OwnHalf wrong for player 0")
	}
	if !b.OwnHalf(model.Cell{X: 5, Y: 14}, 1) {
		t.Error("OwnHalf wrong for player 1")
	}
}
