package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmmpc/lisfy/internal/api"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/diskspace"
	"github.com/jmmpc/lisfy/internal/pathutil"
	"github.com/jmmpc/lisfy/internal/validation"
)

// RemotePath turns a file row's href ("download/a/b.txt") into the server
// path of the file ("/a/b.txt").
func RemotePath(href string) string {
	p := strings.TrimPrefix(href, constants.DownloadHrefPrefix)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Download saves the server file at remotePath into the download
// directory and returns the local path. An existing file is never
// overwritten: the new copy gets a timestamp suffix. Failures are shown as
// notifications and returned.
func (a *App) Download(ctx context.Context, remotePath string) (string, error) {
	local, err := a.download(ctx, remotePath)
	if err != nil {
		a.report(err, func(se *api.StatusError) string {
			return fmt.Sprintf(constants.UploadErrorMessageFormat, se.Status)
		})
		return "", err
	}
	return local, nil
}

func (a *App) download(ctx context.Context, remotePath string) (string, error) {
	name := path.Base(remotePath)
	if err := validation.ValidateFilename(name); err != nil {
		return "", fmt.Errorf("refusing to download %q: %w", remotePath, err)
	}

	local := filepath.Join(a.downloadDir, name)
	f, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		local = pathutil.UniqueName(local, time.Now())
		f, err = os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", local, err)
	}

	reporter := a.newReporter()
	var modTime time.Time
	prepare := func(info api.DownloadInfo) error {
		if info.Size > 0 {
			if err := diskspace.CheckAvailableSpace(local, info.Size, 1+constants.DiskSpaceBufferPercent); err != nil {
				return err
			}
		}
		modTime = info.ModTime
		reporter.Start(info.Size, name)
		return nil
	}

	a.logger.Debug().Str("remote", remotePath).Str("local", local).Msg("download started")
	n, err := a.client.Download(ctx, remotePath, f, prepare, func(loaded, _ int64) {
		reporter.Update(loaded)
	})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", local, cerr)
	}
	if err != nil {
		reporter.Error(err)
		_ = os.Remove(local)
		return "", err
	}
	reporter.Finish()

	if !modTime.IsZero() {
		_ = os.Chtimes(local, modTime, modTime)
	}
	a.logger.Info().Str("file", name).Int64("bytes", n).Str("local", local).Msg("download completed")
	return local, nil
}
