// Package media implements the Media Stager: copying externally received
// media into an agent's worktree and building a short reference sentence
// the Router appends to the user's text.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/logging"
)

// Kind is the detected media category, inferred purely from file extension.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

const mediaDir = ".media"

var extensionKinds = map[string]Kind{
	".jpg": KindImage, ".jpeg": KindImage, ".png": KindImage, ".gif": KindImage, ".webp": KindImage, ".bmp": KindImage,
	".mp4": KindVideo, ".mov": KindVideo, ".avi": KindVideo, ".mkv": KindVideo, ".webm": KindVideo,
	".mp3": KindAudio, ".wav": KindAudio, ".ogg": KindAudio, ".m4a": KindAudio, ".flac": KindAudio,
}

func detectKind(path string) Kind {
	if k, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return KindDocument
}

// ImageResizer, VideoKeyframer and AudioTranscriber are optional
// collaborators the Stager calls after a plain copy has already succeeded;
// each best-effort mutates/augments the staged file and falls back silently
// to the plain copy on any error.
type ImageResizer interface {
	Resize(stagedPath string) error
}

type VideoKeyframer interface {
	ExtractKeyframe(stagedPath string) (keyframePath string, err error)
}

type AudioTranscriber interface {
	Transcribe(stagedPath string) (transcript string, err error)
}

// noop implementations are the zero-tooling defaults.
type noopResizer struct{}

func (noopResizer) Resize(string) error { return nil }

type noopKeyframer struct{}

func (noopKeyframer) ExtractKeyframe(string) (string, error) { return "", nil }

type noopTranscriber struct{}

func (noopTranscriber) Transcribe(string) (string, error) { return "", nil }

// Staged describes one successfully staged file.
type Staged struct {
	WorktreeRelPath string
	Kind            Kind
	Transcript      string // populated only for audio, when a transcriber is wired
}

// Stager copies incoming media into an agent's worktree.
type Stager struct {
	resizer     ImageResizer
	keyframer   VideoKeyframer
	transcriber AudioTranscriber
	log         *logging.Logger
}

// Option configures a Stager with a non-default collaborator.
type Option func(*Stager)

func WithImageResizer(r ImageResizer) Option         { return func(s *Stager) { s.resizer = r } }
func WithVideoKeyframer(k VideoKeyframer) Option     { return func(s *Stager) { s.keyframer = k } }
func WithAudioTranscriber(t AudioTranscriber) Option { return func(s *Stager) { s.transcriber = t } }

// New builds a Stager, defaulting every collaborator to a no-op plain copy.
func New(log *logging.Logger, opts ...Option) *Stager {
	if log == nil {
		log = logging.Default()
	}
	s := &Stager{
		resizer:     noopResizer{},
		keyframer:   noopKeyframer{},
		transcriber: noopTranscriber{},
		log:         log.With(zap.String("component", "media")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessAndStage copies sourcePath into worktree/.media/, ensuring the
// directory exists, then runs the kind-appropriate optional collaborator.
// Every failure of an optional collaborator is logged and swallowed — the
// plain copy it augments has already succeeded by that point.
func (s *Stager) ProcessAndStage(sourcePath, worktree string) (Staged, error) {
	kind := detectKind(sourcePath)

	destDir := filepath.Join(worktree, mediaDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Staged{}, fmt.Errorf("media: create %s: %w", destDir, err)
	}

	destPath := filepath.Join(destDir, filepath.Base(sourcePath))
	if err := copyFile(sourcePath, destPath); err != nil {
		return Staged{}, fmt.Errorf("media: copy %s: %w", sourcePath, err)
	}

	relPath := filepath.Join(mediaDir, filepath.Base(sourcePath))
	staged := Staged{WorktreeRelPath: relPath, Kind: kind}

	switch kind {
	case KindImage:
		if err := s.resizer.Resize(destPath); err != nil {
			s.log.Warn("image resize failed, keeping plain copy", zap.String("path", destPath), zap.Error(err))
		}
	case KindVideo:
		if _, err := s.keyframer.ExtractKeyframe(destPath); err != nil {
			s.log.Warn("keyframe extraction failed, keeping plain copy", zap.String("path", destPath), zap.Error(err))
		}
	case KindAudio:
		transcript, err := s.transcriber.Transcribe(destPath)
		if err != nil {
			s.log.Warn("audio transcription failed, keeping plain copy", zap.String("path", destPath), zap.Error(err))
		} else {
			staged.Transcript = transcript
		}
	}

	return staged, nil
}

// ProcessAndStageAll stages every source path, logging and skipping any
// individual failure rather than aborting the whole batch.
func (s *Stager) ProcessAndStageAll(sourcePaths []string, worktree string) []Staged {
	var out []Staged
	for _, p := range sourcePaths {
		staged, err := s.ProcessAndStage(p, worktree)
		if err != nil {
			s.log.Warn("skipping media file", zap.String("path", p), zap.Error(err))
			continue
		}
		out = append(out, staged)
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// BuildMediaReference returns a short English sentence referencing paths of
// a single detected kind, for the Router to append to user text.
func BuildMediaReference(paths []string, kind Kind) string {
	if len(paths) == 0 {
		return ""
	}
	joined := strings.Join(paths, ", ")

	switch kind {
	case KindImage:
		return fmt.Sprintf("I've placed design mockups/images at: %s. Please analyze them.", joined)
	case KindVideo:
		return fmt.Sprintf("Video file at: %s.", joined)
	case KindAudio:
		return fmt.Sprintf("Original audio file at: %s.", joined)
	case KindDocument:
		return fmt.Sprintf("I've placed the document(s) at: %s. Please review.", joined)
	default:
		return fmt.Sprintf("Attached file(s) at: %s.", joined)
	}
}

// BuildMediaReferenceAll groups a mixed batch of staged files by kind and
// concatenates the per-kind reference sentences, including any audio
// transcripts as a distinct sentence ahead of the original-file reference.
func BuildMediaReferenceAll(staged []Staged) string {
	if len(staged) == 0 {
		return ""
	}

	byKind := map[Kind][]string{}
	var order []Kind
	var transcripts []string
	for _, st := range staged {
		if _, seen := byKind[st.Kind]; !seen {
			order = append(order, st.Kind)
		}
		byKind[st.Kind] = append(byKind[st.Kind], st.WorktreeRelPath)
		if st.Transcript != "" {
			transcripts = append(transcripts, fmt.Sprintf("Voice message transcript of %s: %q", st.WorktreeRelPath, st.Transcript))
		}
	}

	var sentences []string
	sentences = append(sentences, transcripts...)
	for _, k := range order {
		sentences = append(sentences, BuildMediaReference(byKind[k], k))
	}
	return strings.Join(sentences, " ")
}
