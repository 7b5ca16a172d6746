package store

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce drops repeated events for the same file; editors and the
// atomic rename in Save fire several per write.
const watchDebounce = 100 * time.Millisecond

// Watcher reports badge IDs whose layout file changed on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching the store directory.
func (f *FileStore) Watch() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(f.Dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	watcher := &Watcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			id := badgeIDFromPath(event.Name)
			if id == "" {
				continue
			}
			now := time.Now()
			if t, ok := last[id]; ok && now.Sub(t) < watchDebounce {
				continue
			}
			last[id] = now
			select {
			case w.Events <- id:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}
