package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/docfind/docfind/ingest"
)

const ffprobeTimeout = 60 * time.Second

// ffprobeBin is resolved from the environment so containerized installs
// can point at a non-PATH binary
func ffprobeBin() string {
	if bin := os.Getenv("FFPROBE_BIN"); bin != "" {
		return bin
	}
	return "ffprobe"
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
		NbStreams  int    `json:"nb_streams"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// VideoMetadata renders a video's container and stream metadata as a
// markdown table. No transcription, no frame analysis: the document makes
// the file findable by its technical properties.
func VideoMetadata(path, fileType string) ingest.Result {
	ctx, cancel := context.WithTimeout(context.Background(), ffprobeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffprobeBin(),
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ingest.Failed("ffprobe timed out on %s", filepath.Base(path))
		}
		return ingest.Failed("ffprobe failed on %s: %v", filepath.Base(path), err)
	}

	var info ffprobeOutput
	if err := json.Unmarshal(out, &info); err != nil {
		return ingest.Failed("ffprobe output parse failed for %s: %v", filepath.Base(path), err)
	}

	var video, audio *struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	}
	for i := range info.Streams {
		switch info.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &info.Streams[i]
			}
		case "audio":
			if audio == nil {
				audio = &info.Streams[i]
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", filepath.Base(path))
	sb.WriteString("| Property | Value |\n|---|---|\n")
	writeRow(&sb, "Format", info.Format.FormatName)
	writeRow(&sb, "Duration (s)", info.Format.Duration)
	writeRow(&sb, "Bit rate", info.Format.BitRate)
	if video != nil {
		writeRow(&sb, "Video codec", video.CodecName)
		if video.Width > 0 {
			writeRow(&sb, "Resolution", fmt.Sprintf("%dx%d", video.Width, video.Height))
		}
		writeRow(&sb, "Frame rate", video.AvgFrameRate)
	}
	if audio != nil {
		writeRow(&sb, "Audio codec", audio.CodecName)
	}
	writeRow(&sb, "Streams", fmt.Sprintf("%d", info.Format.NbStreams))

	return ingest.Converted(sb.String(), ingest.ConversionVideoMetadata)
}

func writeRow(sb *strings.Builder, key, value string) {
	if value == "" || value == "0" {
		return
	}
	fmt.Fprintf(sb, "| %s | %s |\n", key, value)
}
