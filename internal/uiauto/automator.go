package uiauto

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/common/logger"
)

// Automator resolves element names against the coordinate map and performs
// actions through the driver.
type Automator struct {
	coords Coords
	driver Driver
	log    *logger.Logger
}

func NewAutomator(coords Coords, driver Driver, log *logger.Logger) *Automator {
	return &Automator{
		coords: coords,
		driver: driver,
		log:    log.WithComponent("uiauto"),
	}
}

// Click moves to the named element and clicks it. The resolved position is
// returned even on driver failure so callers can report where the attempt
// landed.
func (a *Automator) Click(ctx context.Context, element string) (Point, error) {
	p, err := a.coords.Lookup(element)
	if err != nil {
		return Point{}, err
	}
	a.log.Debug("Clicking element", zap.String("element", element), zap.Int("x", p.X), zap.Int("y", p.Y))
	if err := a.driver.MoveTo(ctx, p); err != nil {
		return p, fmt.Errorf("failed to move to %q: %w", element, err)
	}
	if err := a.driver.Click(ctx); err != nil {
		return p, fmt.Errorf("failed to click %q: %w", element, err)
	}
	return p, nil
}

// Type clicks the named element to focus it, then sends the text as
// keystrokes.
func (a *Automator) Type(ctx context.Context, element, text string) (Point, error) {
	p, err := a.Click(ctx, element)
	if err != nil {
		return p, err
	}
	a.log.Debug("Typing into element", zap.String("element", element), zap.Int("chars", len(text)))
	if err := a.driver.Type(ctx, text); err != nil {
		return p, fmt.Errorf("failed to type into %q: %w", element, err)
	}
	return p, nil
}

// MousePosition reports the current pointer position.
func (a *Automator) MousePosition(ctx context.Context) (Point, error) {
	return a.driver.Position(ctx)
}

// Elements returns the known element names, for diagnostics.
func (a *Automator) Elements() []string {
	names := make([]string, 0, len(a.coords))
	for name := range a.coords {
		names = append(names, name)
	}
	return names
}
