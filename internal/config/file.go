package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

// Load reads configuration from an INI file.
// A missing file yields the defaults and no error; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	client := f.Section("client")
	cfg.ServerURL = client.Key("server_url").MustString(cfg.ServerURL)
	cfg.RequestTimeout = time.Duration(client.Key("request_timeout_seconds").MustInt(0)) * time.Second
	cfg.Retries = client.Key("retries").MustInt(0)
	cfg.DownloadDir = client.Key("download_dir").MustString(cfg.DownloadDir)
	cfg.CameraDir = client.Key("camera_dir").String()
	cfg.DesktopNotifications = client.Key("desktop_notifications").MustBool(false)
	cfg.TimeLocation = client.Key("time_location").MustString(cfg.TimeLocation)
	cfg.LogLevel = client.Key("log_level").MustString(cfg.LogLevel)

	proxy := f.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(0)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	server := f.Section("server")
	cfg.Server.Listen = server.Key("listen").MustString(cfg.Server.Listen)
	cfg.Server.Root = server.Key("root").MustString(cfg.Server.Root)
	cfg.Server.Storage = server.Key("storage").MustString(cfg.Server.Storage)
	cfg.Server.Metrics = server.Key("metrics").MustBool(cfg.Server.Metrics)
	cfg.Server.Gzip = server.Key("gzip").MustBool(cfg.Server.Gzip)
	cfg.Server.LogFormat = server.Key("log_format").MustString(cfg.Server.LogFormat)

	s3 := f.Section("server.s3")
	cfg.Server.S3.Bucket = s3.Key("bucket").String()
	cfg.Server.S3.Region = s3.Key("region").MustString(cfg.Server.S3.Region)
	cfg.Server.S3.Endpoint = s3.Key("endpoint").String()
	cfg.Server.S3.Prefix = s3.Key("prefix").String()

	az := f.Section("server.azure")
	cfg.Server.Azure.Container = az.Key("container").String()
	cfg.Server.Azure.SASURL = az.Key("sas_url").String()

	return cfg, nil
}

// Save writes cfg to an INI file, creating parent directories.
// Secrets are not written.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f := ini.Empty()

	client, err := f.NewSection("client")
	if err != nil {
		return fmt.Errorf("failed to create client section: %w", err)
	}
	client.Key("server_url").SetValue(cfg.ServerURL)
	client.Key("request_timeout_seconds").SetValue(strconv.Itoa(int(cfg.RequestTimeout / time.Second)))
	client.Key("retries").SetValue(strconv.Itoa(cfg.Retries))
	client.Key("download_dir").SetValue(cfg.DownloadDir)
	client.Key("camera_dir").SetValue(cfg.CameraDir)
	client.Key("desktop_notifications").SetValue(strconv.FormatBool(cfg.DesktopNotifications))
	client.Key("time_location").SetValue(cfg.TimeLocation)
	client.Key("log_level").SetValue(cfg.LogLevel)

	proxy, err := f.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(strconv.Itoa(cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)
	proxy.Key("warmup").SetValue(strconv.FormatBool(cfg.ProxyWarmup))

	server, err := f.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	server.Key("listen").SetValue(cfg.Server.Listen)
	server.Key("root").SetValue(cfg.Server.Root)
	server.Key("storage").SetValue(cfg.Server.Storage)
	server.Key("metrics").SetValue(strconv.FormatBool(cfg.Server.Metrics))
	server.Key("gzip").SetValue(strconv.FormatBool(cfg.Server.Gzip))
	server.Key("log_format").SetValue(cfg.Server.LogFormat)

	s3, err := f.NewSection("server.s3")
	if err != nil {
		return fmt.Errorf("failed to create s3 section: %w", err)
	}
	s3.Key("bucket").SetValue(cfg.Server.S3.Bucket)
	s3.Key("region").SetValue(cfg.Server.S3.Region)
	s3.Key("endpoint").SetValue(cfg.Server.S3.Endpoint)
	s3.Key("prefix").SetValue(cfg.Server.S3.Prefix)

	az, err := f.NewSection("server.azure")
	if err != nil {
		return fmt.Errorf("failed to create azure section: %w", err)
	}
	az.Key("container").SetValue(cfg.Server.Azure.Container)
	az.Key("sas_url").SetValue(cfg.Server.Azure.SASURL)

	// Temporary file + rename so a crash never leaves a half-written config
	tmpPath := path + ".tmp"
	if err := f.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
