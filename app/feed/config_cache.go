package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// CustomChannel is the per-session channel holding user-added feeds.
const CustomChannel = "custom"

var ErrUnknownChannel = errors.New("unknown channel")

// DefaultChannels are served when the channels directory holds no configs.
func DefaultChannels() []*Channel {
	settings := ChannelSettings{Enabled: true, Timeout: 10, MaxItems: 100}

	return []*Channel{
		{
			Name:  "global",
			Title: "Global",
			Feeds: []Source{
				{URL: "https://news.google.com/rss", Name: "Google News"},
				{URL: "https://www.reuters.com/rssFeed/worldNews"},
				{URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
			},
			Settings: settings,
		},
		{
			Name:  "india",
			Title: "India",
			Feeds: []Source{
				{URL: "https://news.google.com/rss/search?q=India", Name: "Google News"},
				{URL: "https://feeds.feedburner.com/ndtvnews-top-stories"},
			},
			Settings: settings,
		},
		{
			Name:  "markets",
			Title: "Markets",
			Feeds: []Source{
				{URL: "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms"},
				{URL: "https://www.moneycontrol.com/rss/marketreports.xml"},
				{URL: "https://www.livemint.com/rss/markets"},
			},
			Settings: settings,
		},
	}
}

type ChannelCache struct {
	channelsDir string
	cache       map[string]*Channel
	mu          sync.RWMutex
}

func NewChannelCache(channelsDir string) *ChannelCache {
	return &ChannelCache{
		channelsDir: channelsDir,
		cache:       make(map[string]*Channel),
	}
}

// Run loads every <name>.yml from the channels directory, falling back to
// DefaultChannels when there is none.
func (cc *ChannelCache) Run() error {
	files, err := cc.configFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		channelName := strings.TrimSuffix(fileName, filepath.Ext(fileName))

		channel, err := cc.LoadChannel(channelName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Channel loaded", "channel", channelName, "feeds", len(channel.Feeds), "enabled", channel.Settings.Enabled)
	}

	if cc.GetChannelCount() == 0 {
		slog.Info("No channel configurations found, using defaults", "dir", cc.channelsDir)
		for _, channel := range DefaultChannels() {
			cc.Put(channel)
		}
	}

	return nil
}

func (cc *ChannelCache) LoadChannel(channelName string) (*Channel, error) {
	if channelName == CustomChannel {
		return nil, fmt.Errorf("channel name '%s' is reserved", CustomChannel)
	}

	configFile := cc.getConfigFilePath(channelName)
	channel, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	channel.Name = channelName

	if err := cc.validateChannel(channel); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.Put(channel)

	return channel, nil
}

func (cc *ChannelCache) Put(channel *Channel) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[channel.Name] = channel
}

func (cc *ChannelCache) GetChannel(channelName string) (*Channel, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	channel, ok := cc.cache[strings.ToLower(channelName)]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownChannel, channelName)
	}
	return channel, nil
}

// GetChannels returns all channels sorted by name.
func (cc *ChannelCache) GetChannels() []*Channel {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	channels := make([]*Channel, 0, len(cc.cache))
	for _, channel := range cc.cache {
		channels = append(channels, channel)
	}
	slices.SortFunc(channels, func(a, b *Channel) int {
		return strings.Compare(a.Name, b.Name)
	})
	return channels
}

func (cc *ChannelCache) GetEnabledChannels() []*Channel {
	channels := cc.GetChannels()
	return slices.DeleteFunc(channels, func(c *Channel) bool {
		return !c.Settings.Enabled
	})
}

func (cc *ChannelCache) GetChannelCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ChannelCache) configFiles() ([]string, error) {
	if _, err := os.Stat(cc.channelsDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(cc.channelsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	return files, nil
}

func (cc *ChannelCache) parseConfig(configFile string) (*Channel, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var channel Channel
	if err := yaml.Unmarshal(data, &channel); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if channel.Settings.Timeout == 0 {
		channel.Settings.Timeout = 10
	}
	if channel.Settings.MaxItems == 0 {
		channel.Settings.MaxItems = 100
	}

	return &channel, nil
}

func (cc *ChannelCache) validateChannel(channel *Channel) error {
	if channel == nil {
		return fmt.Errorf("channel is nil")
	}

	if channel.Name == "" {
		return fmt.Errorf("channel name is required")
	}
	if channel.Name != strings.ToLower(channel.Name) {
		return fmt.Errorf("channel name '%s' must be lowercase", channel.Name)
	}

	if len(channel.Feeds) == 0 {
		return fmt.Errorf("at least one feed is required")
	}

	for i, source := range channel.Feeds {
		if err := ValidateFeedURL(source.URL); err != nil {
			return fmt.Errorf("invalid feed at index %d: %w", i, err)
		}
	}

	nonNegativeFields := map[string]int{
		"timeout":   channel.Settings.Timeout,
		"max items": channel.Settings.MaxItems,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func (cc *ChannelCache) getConfigFilePath(channelName string) string {
	return filepath.Join(cc.channelsDir, channelName+".yml")
}
