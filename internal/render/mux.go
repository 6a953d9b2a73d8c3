package render

import (
	"context"
	"errors"
	"strconv"
)

// MuxInput describes the final assembly. An empty Voice means narration
// is exhausted and a generated silent track is used instead.
type MuxInput struct {
	Video    string
	Voice    string
	Captions string
	Duration float64
	Output   string
}

// BuildMuxArgs assembles the ffmpeg arguments that combine the joined video,
// the narration and the subtitle file into the final container.
func (s *Service) BuildMuxArgs(in MuxInput) []string {
	args := []string{"-y", "-i", in.Video}
	narrated := in.Voice != ""
	if narrated {
		args = append(args, "-i", in.Voice)
	} else {
		args = append(args,
			"-f", "lavfi",
			"-t", fixed3(in.Duration),
			"-i", "anullsrc=channel_layout=mono:sample_rate="+s.sampleRate(),
		)
	}
	args = append(args, "-i", in.Captions)
	if narrated && s.Config.Voice.MasteringFilter != "" {
		args = append(args, "-filter:a", s.Config.Voice.MasteringFilter)
	}

	codec := firstNonEmpty(s.Config.Audio.Codec, "aac")
	bitrate := s.Config.Audio.BitrateKbps
	if bitrate <= 0 {
		bitrate = 192
	}
	lang := firstNonEmpty(s.Config.Captions.Language, "eng")

	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-map", "2:0",
		"-c:v", "copy",
		"-c:a", codec,
		"-b:a", strconv.Itoa(bitrate)+"k",
		"-c:s", "mov_text",
		"-metadata:s:s:0", "language="+lang,
	)
	if !narrated {
		args = append(args, "-shortest")
	}
	return append(args, in.Output)
}

// Mux writes the final video.
func (s *Service) Mux(ctx context.Context, in MuxInput) error {
	if in.Video == "" || in.Captions == "" || in.Output == "" {
		return errors.New("mux requires video, captions and output paths")
	}
	if err := s.ffmpeg(ctx, "mux", s.BuildMuxArgs(in)); err != nil {
		return err
	}
	s.logger.Info().
		Bool("narrated", in.Voice != "").
		Str("output", s.Paths.Rel(in.Output)).
		Msg("final video written")
	return nil
}
