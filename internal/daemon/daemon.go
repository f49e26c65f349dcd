package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type Daemon struct {
	pidFile string
}

// ProcessInfo describes the resource usage of a running daemon
type ProcessInfo struct {
	PID              int       `json:"pid"`
	StartedAt        time.Time `json:"started_at"`
	RSSMB            float64   `json:"rss_mb"`
	CPUPercent       float64   `json:"cpu_percent"`
	Threads          int32     `json:"threads"`
	SystemMemPercent float64   `json:"system_mem_percent"`
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

// PIDFile returns the path of the PID file
func (d *Daemon) PIDFile() string {
	return d.pidFile
}

func (d *Daemon) WritePID() error {
	if dir := filepath.Dir(d.pidFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create PID directory")
		}
	}
	pid := os.Getpid()
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0644)
}

func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the PID file points at a live process.
// A stale PID file is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid <= 0 {
		return false, 0, nil
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Info returns resource usage for the running daemon
func (d *Daemon) Info() (*ProcessInfo, error) {
	running, pid, err := d.IsRunning()
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, errors.New("daemon is not running")
	}
	return Inspect(pid)
}

// Inspect collects resource usage for any process
func Inspect(pid int) (*ProcessInfo, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to inspect process %d", pid)
	}

	info := &ProcessInfo{PID: pid}
	if created, err := proc.CreateTime(); err == nil {
		info.StartedAt = time.UnixMilli(created)
	}
	if memInfo, err := proc.MemoryInfo(); err == nil {
		info.RSSMB = float64(memInfo.RSS) / 1024 / 1024
	}
	if cpuPercent, err := proc.CPUPercent(); err == nil {
		info.CPUPercent = cpuPercent
	}
	if threads, err := proc.NumThreads(); err == nil {
		info.Threads = threads
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.SystemMemPercent = vm.UsedPercent
	}
	return info, nil
}

func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking daemon status")
	}

	if !running {
		return errors.New("daemon is not running or PID file is stale")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrap(err, "failed to find process")
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = d.RemovePID()
			return errors.New("daemon process already terminated")
		}
		return errors.Wrap(err, "failed to send SIGTERM")
	}

	if err := d.RemovePID(); err != nil {
		return errors.Wrap(err, "failed to remove PID file")
	}

	return nil
}
