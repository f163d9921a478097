package worker

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrDispatcherBusy is returned when the job queue is full.
var ErrDispatcherBusy = errors.New("dispatcher busy")

type keyQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher hands jobs to pooled workers, round-robin across job keys so
// one client flooding uploads cannot starve another.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job // entry point for outer jobs
	Manager  *Manager

	mu        sync.Mutex
	queues    map[string]*keyQueue
	ready     *list.List // keys with pending jobs, in service order
	positions map[string]*list.Element
	quit      chan struct{}
}

func NewDispatcher(minWorkers, maxWorkers, queueSize int, manager *Manager, idleTimeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		pool:      newJobChannelPool(minWorkers, maxWorkers, idleTimeout, manager),
		JobQueue:  make(chan Job, queueSize),
		Manager:   manager,
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
		quit:      make(chan struct{}),
	}

	for i := 0; i < minWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit queues job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	select {
	case d.JobQueue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (d *Dispatcher) run() {
	for {
		// dispatch one job of the key at the front of the ready list
		if !d.dispatchOne() {
			select {
			case job := <-d.JobQueue: // nothing pending, wait
				d.enqueueJob(job)
			case <-d.quit:
				return
			}
			continue
		}
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		case <-d.quit:
			return
		default:
		}
	}
}

// Close stops dispatching and retires idle workers. Queued jobs are dropped.
func (d *Dispatcher) Close() {
	close(d.quit)
	d.pool.close()
}

// CancelJob removes task from the jobs pending under key. It reports false
// when the job already left the queue for a worker.
func (d *Dispatcher) CancelJob(key string, task *ingestTask) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, ok := d.queues[key]
	if !ok {
		return false
	}
	for i, job := range q.jobs {
		if job.Task != task {
			continue
		}
		q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
		if len(q.jobs) == 0 {
			delete(d.queues, key)
			if elem, ok := d.positions[key]; ok {
				d.ready.Remove(elem)
				delete(d.positions, key)
			}
		}
		return true
	}
	return false
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.Key]
	if q == nil {
		q = &keyQueue{}
		d.queues[job.Key] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.positions[job.Key] = d.ready.PushBack(job.Key)
}

// dispatchOne takes the first job of the key at the front and hands it to a worker
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}
	key := elem.Value.(string)
	q := d.queues[key]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		// last job of this key, it leaves the ready list
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, key)
		delete(d.queues, key)
	} else {
		d.ready.MoveToBack(elem)
	}
	d.mu.Unlock()

	workerChan := d.pool.acquire()
	debugLog("[dispatcher] assign %s job for %q to worker-%d", job.Type, key, d.pool.workerID(workerChan))
	workerChan <- job
	return true
}
