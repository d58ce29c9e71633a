package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(48000)

// BeepPlayer plays mp3 clips through the machine's speaker, for kiosk
// deployments where the server box renders the audio itself. Successfully
// decoded clips are buffered and cached by path.
type BeepPlayer struct {
	mu    sync.Mutex
	root  string
	cache map[string]*clipBuffer
}

type clipBuffer struct {
	buf    *beep.Buffer
	format beep.Format
}

// NewBeepPlayer initializes the speaker and serves clips from root
// (clip paths like /audio/item-cat.mp3 resolve under it).
func NewBeepPlayer(root string) (*BeepPlayer, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &BeepPlayer{root: root, cache: make(map[string]*clipBuffer)}, nil
}

func (p *BeepPlayer) Start(path string) (<-chan struct{}, error) {
	clip, err := p.load(path)
	if err != nil {
		return nil, err
	}

	var streamer beep.Streamer = clip.buf.Streamer(0, clip.buf.Len())
	if clip.format.SampleRate != sampleRate {
		streamer = beep.Resample(4, clip.format.SampleRate, sampleRate, clip.buf.Streamer(0, clip.buf.Len()))
	}

	done := make(chan struct{})
	speaker.Clear()
	speaker.Play(beep.Seq(streamer, beep.Callback(func() { close(done) })))
	return done, nil
}

func (p *BeepPlayer) load(path string) (*clipBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if clip, ok := p.cache[path]; ok {
		return clip, nil
	}

	f, err := os.Open(filepath.Join(p.root, strings.TrimPrefix(path, "/")))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrClipUnavailable, path, err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrClipUnavailable, path, err)
	}
	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	streamer.Close()

	clip := &clipBuffer{buf: buf, format: format}
	p.cache[path] = clip
	return clip, nil
}

func (p *BeepPlayer) Stop() {
	speaker.Clear()
}

func (p *BeepPlayer) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]*clipBuffer)
}

// NopPlayer is the silent backend used when audio is disabled for a level
// or no audio hardware exists. Every clip completes instantly.
type NopPlayer struct{}

func (NopPlayer) Start(string) (<-chan struct{}, error) {
	done := make(chan struct{})
	close(done)
	return done, nil
}

func (NopPlayer) Stop()       {}
func (NopPlayer) ClearCache() {}
