package classify

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	wdtagger "github.com/yasamari/wd-tagger-go"
	_ "golang.org/x/image/webp"

	"github.com/xxxsen/szurutag/internal/model"
)

const defaultCharacterThreshold = 0.85

type wdTaggerConfig struct {
	Model              string  `json:"model"`
	LibraryPath        string  `json:"library_path"`
	CharacterThreshold float32 `json:"character_threshold"`
}

type wdPredictor interface {
	Predict(images []image.Image, generalThreshold float32, characterThreshold float32, generalMCut bool, characterMCut bool) ([]*wdtagger.Tags, error)
}

// wdTaggerProvider runs a local WD tagger model through onnxruntime. The
// runtime and model are loaded on first use so that building the provider
// stays cheap.
type wdTaggerProvider struct {
	repo               string
	libraryPath        string
	characterThreshold float32

	once      sync.Once
	initErr   error
	predictor wdPredictor
	destroy   func()
}

func (p *wdTaggerProvider) Name() string {
	return "wdtagger"
}

func (p *wdTaggerProvider) ensure() error {
	if p.predictor != nil {
		return nil
	}
	p.once.Do(func() {
		if p.libraryPath != "" {
			ort.SetSharedLibraryPath(p.libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			p.initErr = fmt.Errorf("init onnxruntime: %w", err)
			return
		}
		t, err := wdtagger.NewWdTagger(wdtagger.TaggerRepo(p.repo))
		if err != nil {
			p.initErr = fmt.Errorf("load tagger model %s: %w", p.repo, err)
			return
		}
		p.predictor = t
		p.destroy = func() { t.Destroy() }
	})
	return p.initErr
}

func (p *wdTaggerProvider) TagImage(ctx context.Context, path string, threshold float32) ([]string, model.Safety, error) {
	if err := p.ensure(); err != nil {
		return nil, model.SafetyUnrated, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, model.SafetyUnrated, err
	}
	img, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return nil, model.SafetyUnrated, fmt.Errorf("decode image %s: %w", path, err)
	}
	results, err := p.predictor.Predict([]image.Image{img}, threshold, p.characterThreshold, false, false)
	if err != nil {
		return nil, model.SafetyUnrated, err
	}
	if len(results) == 0 || results[0] == nil {
		return nil, model.SafetyUnrated, fmt.Errorf("tagger returned no prediction")
	}
	tags := results[0]
	out := make([]string, 0, len(tags.CharacterTags)+len(tags.GeneralTags))
	out = append(out, tags.CharacterTags...)
	out = append(out, tags.GeneralTags...)
	return out, model.ParseSafety(tags.Rating), nil
}

func (p *wdTaggerProvider) Close() error {
	if p.destroy != nil {
		p.destroy()
	}
	return nil
}

func createWdTaggerFactory(args interface{}) (Tagger, error) {
	cfg := &wdTaggerConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	repo := strings.TrimSpace(cfg.Model)
	if repo == "" {
		repo = string(wdtagger.WdSwinV2TaggerV3)
	}
	threshold := cfg.CharacterThreshold
	if threshold <= 0 {
		threshold = defaultCharacterThreshold
	}
	return &wdTaggerProvider{
		repo:               repo,
		libraryPath:        strings.TrimSpace(cfg.LibraryPath),
		characterThreshold: threshold,
	}, nil
}

func init() {
	Register("wdtagger", createWdTaggerFactory)
}
