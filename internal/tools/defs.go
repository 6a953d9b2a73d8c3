package tools

import (
	"runtime"
	"sort"
)

var toolDefinitions = map[string]ToolDefinition{
	"ffmpeg": {
		Name:    "ffmpeg",
		Purpose: "transcoding, cross-fades, muxing",
		// xfade first shipped in 4.3.
		MinimumVersion: "4.3",
		Required:       true,
		Binaries: []BinarySpec{
			{ID: "ffmpeg", Executable: executableName("ffmpeg"), VersionSwitch: "-version"},
			{ID: "ffprobe", Executable: executableName("ffprobe"), VersionSwitch: "-version"},
		},
	},
	"edge-tts": {
		Name:    "edge-tts",
		Purpose: "neural speech synthesis",
		Binaries: []BinarySpec{
			{ID: "edge-tts", Executable: executableName("edge-tts"), VersionSwitch: "--version"},
		},
	},
	"say": {
		Name:    "say",
		Purpose: "platform speech synthesis",
		Binaries: []BinarySpec{
			{ID: "say", Executable: "say"},
		},
	},
	"espeak-ng": {
		Name:    "espeak-ng",
		Purpose: "formant speech synthesis",
		Binaries: []BinarySpec{
			{ID: "espeak-ng", Executable: executableName("espeak-ng"), VersionSwitch: "--version"},
		},
	},
	"espeak": {
		Name:    "espeak",
		Purpose: "formant speech synthesis",
		Binaries: []BinarySpec{
			{ID: "espeak", Executable: executableName("espeak"), VersionSwitch: "--version"},
		},
	},
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the list of tool names, required tools first.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := toolDefinitions[names[i]], toolDefinitions[names[j]]
		if a.Required != b.Required {
			return a.Required
		}
		return names[i] < names[j]
	})
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}
