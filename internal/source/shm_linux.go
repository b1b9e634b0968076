//go:build linux && cgo

package source

/*
#cgo LDFLAGS: -lrt -lpthread

#include <stdlib.h>
#include <stdint.h>
#include <time.h>
#include <sys/mman.h>
#include <fcntl.h>
#include <unistd.h>
#include <string.h>

#define RING_BUFFER_SIZE 30
#define MAX_FRAME_SIZE (1920 * 1080 * 3 / 2)

typedef struct {
    uint64_t frame_number;
    struct timespec timestamp;
    int camera_id;
    int width;
    int height;
    int format;
    size_t data_size;
    uint8_t data[MAX_FRAME_SIZE];
} Frame;

typedef struct {
    volatile uint32_t write_index;
    volatile uint32_t frame_interval_ms;
    Frame frames[RING_BUFFER_SIZE];
} SharedFrameBuffer;

static SharedFrameBuffer* open_frame_shm(const char* name) {
    int fd = shm_open(name, O_RDONLY, 0666);
    if (fd == -1) {
        return NULL;
    }

    SharedFrameBuffer* shm = (SharedFrameBuffer*)mmap(
        NULL,
        sizeof(SharedFrameBuffer),
        PROT_READ,
        MAP_SHARED,
        fd,
        0
    );

    close(fd);

    if (shm == MAP_FAILED) {
        return NULL;
    }

    return shm;
}

static void close_frame_shm(SharedFrameBuffer* shm) {
    if (shm != NULL) {
        munmap((void*)shm, sizeof(SharedFrameBuffer));
    }
}

static uint32_t frame_write_index(SharedFrameBuffer* shm) {
    if (shm == NULL) {
        return 0;
    }
    return __atomic_load_n(&shm->write_index, __ATOMIC_ACQUIRE);
}

static int read_frame_at(SharedFrameBuffer* shm, uint32_t write_idx, Frame* out) {
    if (!shm || !out || write_idx == 0) {
        return -1;
    }
    memcpy(out, &shm->frames[(write_idx - 1) % RING_BUFFER_SIZE], sizeof(Frame));
    return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
)

const (
	maxSHMFrameSize = 1920 * 1080 * 3 / 2
	shmPollInterval = 10 * time.Millisecond
	shmOpenRetries  = 30
)

// SHMSource reads the newest frame from the camera daemon's shared-memory ring.
// Frames written faster than they are consumed are skipped, never reordered.
type SHMSource struct {
	shm       *C.SharedFrameBuffer
	name      string
	lastIndex uint32
	lastFrame uint64
	started   bool
}

// NewSHMSource opens the named shared memory, waiting up to 30s for the camera
// daemon to create it.
func NewSHMSource(name string) (*SHMSource, error) {
	if name == "" {
		name = "/pet_camera_mjpeg_frame"
	}
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var shm *C.SharedFrameBuffer
	for i := 0; i < shmOpenRetries; i++ {
		shm = C.open_frame_shm(cName)
		if shm != nil {
			break
		}
		if i%5 == 0 {
			logger.Info("Source", "Waiting for shared memory %s to appear... (%d/%d)", name, i+1, shmOpenRetries)
		}
		time.Sleep(1 * time.Second)
	}
	if shm == nil {
		return nil, fmt.Errorf("failed to open shared memory: %s (timeout after %ds)", name, shmOpenRetries)
	}

	logger.Info("Source", "Successfully opened shared memory: %s", name)
	return &SHMSource{shm: shm, name: name}, nil
}

// Next polls until the daemon publishes a frame newer than the last one
// returned, then copies and decodes it.
func (s *SHMSource) Next(ctx context.Context) (image.Image, error) {
	if s.shm == nil {
		return nil, fmt.Errorf("shared memory not open")
	}

	for {
		writeIndex := uint32(C.frame_write_index(s.shm))
		if writeIndex != 0 && (!s.started || writeIndex != s.lastIndex) {
			var cFrame C.Frame
			if C.read_frame_at(s.shm, C.uint32_t(writeIndex), &cFrame) != 0 {
				return nil, fmt.Errorf("failed to read frame at index %d", writeIndex)
			}
			s.lastIndex = writeIndex
			frameNum := uint64(cFrame.frame_number)
			if !s.started || frameNum != s.lastFrame {
				s.started = true
				s.lastFrame = frameNum
				return s.convertFrame(&cFrame)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(shmPollInterval):
		}
	}
}

func (s *SHMSource) convertFrame(cFrame *C.Frame) (image.Image, error) {
	dataSize := int(cFrame.data_size)
	if dataSize <= 0 || dataSize > maxSHMFrameSize {
		return nil, fmt.Errorf("frame #%d has invalid size %d", uint64(cFrame.frame_number), dataSize)
	}

	data := make([]byte, dataSize)
	cData := (*[maxSHMFrameSize]byte)(unsafe.Pointer(&cFrame.data[0]))[:dataSize:dataSize]
	copy(data, cData)

	return decodeRaw(int(cFrame.format), data, int(cFrame.width), int(cFrame.height))
}

// Close unmaps the shared memory
func (s *SHMSource) Close() error {
	if s.shm != nil {
		C.close_frame_shm(s.shm)
		s.shm = nil
	}
	return nil
}
