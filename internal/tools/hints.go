package tools

import "runtime"

func installHints(tool string) []string {
	switch tool {
	case "ffmpeg":
		switch runtime.GOOS {
		case "darwin":
			return []string{"Install ffmpeg via Homebrew: brew install ffmpeg"}
		case "linux":
			return []string{"Install ffmpeg with your distro package manager, e.g. sudo apt install ffmpeg"}
		case "windows":
			return []string{
				"Install ffmpeg via winget: winget install Gyan.FFmpeg",
				"or via Chocolatey: choco install ffmpeg",
			}
		default:
			return []string{"Install ffmpeg using your platform's package manager"}
		}
	case "edge-tts":
		return []string{"Install edge-tts with pipx: pipx install edge-tts"}
	case "espeak-ng", "espeak":
		if runtime.GOOS == "darwin" {
			return []string{"Install espeak-ng via Homebrew: brew install espeak-ng"}
		}
		return []string{"Install espeak-ng with your distro package manager, e.g. sudo apt install espeak-ng"}
	case "say":
		if runtime.GOOS != "darwin" {
			return []string{"say is only available on macOS"}
		}
	}
	return nil
}
