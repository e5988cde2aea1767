package fuzz

import (
	"image"
	"net/http"
	"testing"

	"golang.org/x/text/encoding/japanese"

	"github.com/Billy-Davies-2/hitchart-input/internal/annotate"
	"github.com/Billy-Davies-2/hitchart-input/internal/export"
	"github.com/Billy-Davies-2/hitchart-input/internal/handlers"
	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
	"github.com/Billy-Davies-2/hitchart-input/internal/pubsub"
	"github.com/Billy-Davies-2/hitchart-input/internal/render"
	"github.com/Billy-Davies-2/hitchart-input/internal/roster"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

func init() {
	// Initialize logger for tests
	logger.Init("error", "json")
}

const fieldSize = 64

type fixture struct {
	svc *annotate.Service
	bus *pubsub.PubSub
	enc *export.Encoder
}

func newFixture(t testing.TB) *fixture {
	reg := session.NewRegistry(session.Options{Schema: models.SchemaV2, Width: fieldSize, Height: fieldSize}, 0)
	bus := pubsub.New()
	return &fixture{
		svc: annotate.NewService(reg, roster.NewDirSource(t.TempDir(), japanese.ShiftJIS), bus, models.SchemaV2),
		bus: bus,
		enc: export.NewEncoder(japanese.ShiftJIS),
	}
}

func (f *fixture) mux(t testing.TB) *http.ServeMux {
	h, err := handlers.New(handlers.Options{
		Service:  f.svc,
		Renderer: render.NewRenderer(image.NewRGBA(image.Rect(0, 0, fieldSize, fieldSize)), 8),
		Encoder:  f.enc,
		PubSub:   f.bus,
	})
	if err != nil {
		t.Fatalf("handlers.New: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}
