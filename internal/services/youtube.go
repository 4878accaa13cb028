package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
)

const maxAudioBytes = 100 * 1024 * 1024 // 100MB safety cap

var allowedYouTubeHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

// NormalizeYouTubeURL validates a user supplied link and returns the canonical
// watch URL together with the video id.
func NormalizeYouTubeURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrInvalidInput
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", ErrInvalidDomain
	}

	host := strings.ToLower(u.Hostname())
	if !allowedYouTubeHosts[host] {
		return "", "", ErrInvalidDomain
	}

	var videoID string
	if host == "youtu.be" {
		videoID, _, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	} else {
		videoID = u.Query().Get("v")
	}

	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return "", "", ErrMissingVideoID
	}

	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID), videoID, nil
}

// videoClient is the subset of the kkdai client used here.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*yt.Video, error)
	GetStreamContext(ctx context.Context, video *yt.Video, format *yt.Format) (io.ReadCloser, int64, error)
}

type YouTubeService struct {
	client        videoClient
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ffmpegPath    string
}

// NewYouTubeService creates the video host client. An empty ffmpegPath keeps
// the downloaded container as is.
func NewYouTubeService(ffmpegPath string) *YouTubeService {
	return &YouTubeService{
		client:        &yt.Client{},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ffmpegPath:    ffmpegPath,
	}
}

// Duration returns the video length in seconds without downloading media.
func (s *YouTubeService) Duration(ctx context.Context, videoURL string) (int, error) {
	video, err := s.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	seconds := int(video.Duration.Seconds())
	if seconds <= 0 {
		return 0, ErrDurationUnavailable
	}
	return seconds, nil
}

// DownloadAudio streams the best audio track into dir and returns the file path.
func (s *YouTubeService) DownloadAudio(ctx context.Context, videoURL, dir string) (string, error) {
	video, err := s.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	best, err := pickAudioFormat(video.Formats)
	if err != nil {
		return "", err
	}

	stream, _, err := s.client.GetStreamContext(ctx, video, best)
	if err != nil {
		return "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	path := filepath.Join(dir, "audio."+extensionForMime(best.MimeType))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(stream, maxAudioBytes+1))
	closeErr := f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to write audio file: %w", closeErr)
	}
	if n > maxAudioBytes {
		return "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))
	}
	if n == 0 {
		return "", fmt.Errorf("audio stream is empty")
	}

	log.Printf("Downloaded %d bytes of audio (%s)", n, best.MimeType)

	if s.ffmpegPath == "" {
		return path, nil
	}

	mp3Path := filepath.Join(dir, "audio.mp3")
	if path == mp3Path {
		return path, nil
	}
	if err := s.transcode(ctx, path, mp3Path); err != nil {
		return "", err
	}
	os.Remove(path)
	return mp3Path, nil
}

// transcode converts the source to 16 kHz mono MP3, the format Whisper
// handles natively and within its upload limit.
func (s *YouTubeService) transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "32k",
		dst,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Captions fetches the published captions of a video as plain text.
func (s *YouTubeService) Captions(ctx context.Context, videoID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: request any available language
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			return "", fmt.Errorf("no captions available: %w", err)
		}
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", ErrEmptyTranscript
	}
	return cleaned, nil
}

// pickAudioFormat prefers audio-only formats, then the highest bitrate.
func pickAudioFormat(formats yt.FormatList) (*yt.Format, error) {
	candidates := formats.WithAudioChannels()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no audio formats available")
	}

	var best *yt.Format
	bestAudioOnly := false
	for i := range candidates {
		f := &candidates[i]
		audioOnly := strings.HasPrefix(f.MimeType, "audio/")
		switch {
		case best == nil:
		case audioOnly && !bestAudioOnly:
		case audioOnly == bestAudioOnly && f.Bitrate > best.Bitrate:
		default:
			continue
		}
		best = f
		bestAudioOnly = audioOnly
	}
	return best, nil
}

func extensionForMime(mimeType string) string {
	mime := strings.TrimSpace(strings.Split(mimeType, ";")[0])
	switch mime {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/mp4":
		return "m4a"
	case "video/mp4":
		return "mp4"
	case "audio/mpeg":
		return "mp3"
	default:
		return "bin"
	}
}
