package assets

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/swapper/engine/assets/loaders"
	"github.com/spaghettifunk/swapper/engine/core"
)

const shaderExt = ".spv"

// ShaderStages are the compiled modules the renderer asks for.
var ShaderStages = []string{"vert", "frag"}

type AssetInfo struct {
	Path       string
	Stage      string
	LastLoaded time.Time
}

// AssetManager serves compiled shaders from a directory and, once watching,
// reports which stage changed on disk.
type AssetManager struct {
	dir    string
	assets map[string]AssetInfo
	loader Loader
	// last bytecode per stage that passed validation
	code map[string][]byte

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	reloads  chan string
}

func NewAssetManager(shaderDir string) (*AssetManager, error) {
	am := &AssetManager{
		dir:     shaderDir,
		assets:  make(map[string]AssetInfo),
		loader:  &loaders.ShaderLoader{},
		code:    make(map[string][]byte),
		reloads: make(chan string, len(ShaderStages)),
		done:    make(chan struct{}),
	}
	for _, stage := range ShaderStages {
		am.assets[stage] = AssetInfo{
			Path:  filepath.Join(shaderDir, stage+shaderExt),
			Stage: stage,
		}
	}
	return am, nil
}

// ShaderCode loads the SPIR-V for a stage from disk. It is read on every
// call so a rebuild picks up the latest file. Once a stage has loaded, a
// missing or broken file falls back to the last good bytecode.
func (am *AssetManager) ShaderCode(stage string) ([]byte, error) {
	am.mutex.RLock()
	asset, exists := am.assets[stage]
	good := am.code[stage]
	am.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: unknown shader stage %q", core.ErrInvalidConfig, stage)
	}

	data, err := am.loader.Load(asset.Path)
	if err != nil {
		if good != nil {
			core.LogWarn("failed to load shader %s, keeping the previous one: %s", asset.Path, err)
			return good, nil
		}
		core.LogError("failed to load shader %s: %s", asset.Path, err)
		return nil, err
	}

	am.mutex.Lock()
	asset.LastLoaded = time.Now()
	am.assets[stage] = asset
	am.code[stage] = data
	am.mutex.Unlock()

	core.LogDebug("Loaded shader %s (%d bytes).", asset.Path, len(data))
	return data, nil
}

func (am *AssetManager) LastLoaded(stage string) time.Time {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.assets[stage].LastLoaded
}

// Reloads yields the name of every stage written since the last receive.
// Several writes to the same stage may be folded into one.
func (am *AssetManager) Reloads() <-chan string {
	return am.reloads
}

// Watch starts watching the shader directory in the background.
func (am *AssetManager) Watch() error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if am.fsnotify != nil {
		return nil
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatch.Add(am.dir); err != nil {
		fsWatch.Close()
		return err
	}
	am.fsnotify = fsWatch

	am.wg.Add(1)
	go am.start()
	core.LogInfo("Watching %s for shader changes.", am.dir)
	return nil
}

func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.wg.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if stage, ok := am.stageOf(e.Name); ok {
				// a file still being written fails here and is
				// picked up by its next write event
				if _, err := am.loader.Load(e.Name); err != nil {
					core.LogWarn("ignoring change to shader %s: %s", e.Name, err)
					continue
				}
				am.notify(stage)
			}

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// notify never blocks the watcher. A full channel already holds a pending
// reload that will rebuild with the newest file.
func (am *AssetManager) notify(stage string) {
	select {
	case am.reloads <- stage:
		core.LogDebug("Shader %s changed on disk.", stage)
	default:
	}
}

func (am *AssetManager) stageOf(path string) (string, bool) {
	if filepath.Ext(path) != shaderExt {
		return "", false
	}
	stage := strings.TrimSuffix(filepath.Base(path), shaderExt)
	am.mutex.RLock()
	_, exists := am.assets[stage]
	am.mutex.RUnlock()
	return stage, exists
}
