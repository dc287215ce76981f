package fly

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/iwtcode/ppmacAdapter/models"
)

type EventKind int

const (
	EventStatus EventKind = iota
	EventPoint
	EventResult
)

// Event - уведомление о ходе скана.
type Event struct {
	Kind   EventKind
	Status models.ScanStatus
	Point  models.ScanPoint
	Result models.ScanResult
}

type EventHandler func(Event)

// dispatcher доставляет события обработчику в отдельной горутине через
// неограниченную очередь, чтобы медленный обработчик не тормозил опрос.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	q       *queue.Queue
	closed  bool
	handler EventHandler
	done    chan struct{}
}

func newDispatcher(handler EventHandler) *dispatcher {
	d := &dispatcher{
		q:       queue.New(),
		handler: handler,
		done:    make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *dispatcher) push(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.q.Add(e)
	d.cond.Signal()
}

// close прекращает прием событий. Уже поставленные в очередь будут доставлены.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for d.q.Length() == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.q.Length() == 0 {
			d.mu.Unlock()
			return
		}
		e := d.q.Remove().(Event)
		d.mu.Unlock()

		d.handler(e)
	}
}
