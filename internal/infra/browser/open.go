package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Open はファイルをOSの既定アプリケーション（通常はブラウザ）で開きます
// コマンドの終了は待ちません
func Open(path string) error {
	cmd, err := command(runtime.GOOS, path)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	// ハンドラの終了を回収してゾンビプロセスを残さない
	go cmd.Wait()
	return nil
}

func command(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", path), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path), nil
	default:
		return nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}
