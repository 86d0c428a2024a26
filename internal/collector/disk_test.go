package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"go.uber.org/zap"

	"github.com/Guliveer/hoststat/internal/models"
)

// statRecord builds a 17-field stat line with the given read and write tick
// values at indices 3 and 7.
func statRecord(readTicks, writeTicks uint64) []byte {
	return []byte(fmt.Sprintf("    4170     1211   339516     %d     2312     4037   115784     %d        0     9172    12204        0        0        0        0      610      136\n",
		readTicks, writeTicks))
}

func blockFS(devices map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, ioerr := range devices {
		fsys["sys/block/"+name+"/stat"] = &fstest.MapFile{Data: statRecord(1, 1)}
		if ioerr != "" {
			fsys["sys/block/"+name+"/device/ioerr_cnt"] = &fstest.MapFile{Data: []byte(ioerr + "\n")}
		}
	}
	return fsys
}

func TestParseDeviceStat(t *testing.T) {
	fields, err := ParseDeviceStat(statRecord(7, 9))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 17 {
		t.Fatalf("got %d fields, want 17", len(fields))
	}
	if fields[3] != 7 || fields[7] != 9 {
		t.Errorf("fields[3], fields[7] = %d, %d; want 7, 9", fields[3], fields[7])
	}

	if _, err := ParseDeviceStat([]byte("1 2 3 4 5 6 7 8 9 10 11\n")); !errors.Is(err, ErrParse) {
		t.Errorf("11-field record error = %v, want ErrParse", err)
	}
	if _, err := ParseDeviceStat([]byte("1 2 3 4 5 6 7 8 9 10 11 12 13 -1\n")); !errors.Is(err, ErrParse) {
		t.Errorf("negative field error = %v, want ErrParse", err)
	}
}

func TestBlockReader_Devices(t *testing.T) {
	fsys := blockFS(map[string]string{"sda": "", "mmcblk0": ""})
	fsys["sys/block/.hidden/stat"] = &fstest.MapFile{Data: statRecord(0, 0)}

	names, err := NewBlockReader(fsys, ErrorSourceIOErr, nil).Devices()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("Devices() = %v, want 2 entries without dot-entries", names)
	}
}

func TestBlockReader_IOErrCount(t *testing.T) {
	fsys := blockFS(map[string]string{"sda": "0x1f", "mmcblk0": ""})
	r := NewBlockReader(fsys, ErrorSourceIOErr, nil)

	sda, err := r.ReadDevice("sda")
	if err != nil {
		t.Fatal(err)
	}
	if sda.Errors != 31 {
		t.Errorf("sda errors = %d, want 31", sda.Errors)
	}

	mmc, err := r.ReadDevice("mmcblk0")
	if err != nil {
		t.Fatal(err)
	}
	if mmc.Errors != 0 {
		t.Errorf("mmcblk0 errors = %d, want 0 without ioerr_cnt", mmc.Errors)
	}
}

func TestBlockReader_StatFields(t *testing.T) {
	fsys := fstest.MapFS{"sys/block/sda/stat": {Data: statRecord(2, 3)}}

	stat, err := NewBlockReader(fsys, ErrorSourceStatFields, []int{3, 7}).ReadDevice("sda")
	if err != nil {
		t.Fatal(err)
	}
	if stat.Errors != 5 {
		t.Errorf("errors = %d, want 5", stat.Errors)
	}

	_, err = NewBlockReader(fsys, ErrorSourceStatFields, []int{40}).ReadDevice("sda")
	if !errors.Is(err, ErrParse) {
		t.Errorf("out-of-range field error = %v, want ErrParse", err)
	}
}

func TestDiskErrorTracker_Delta(t *testing.T) {
	fsys := fstest.MapFS{"sys/block/mmcblk0/stat": {Data: statRecord(2, 3)}}
	reader := NewBlockReader(fsys, ErrorSourceStatFields, []int{3, 7})
	tracker := NewDiskErrorTracker(reader, "mmcblk0", zap.NewNop())
	ctx := context.Background()

	got, err := tracker.Sample(ctx, models.RaspberryPiSingleDevice)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("first Sample() = %d, want 0", got)
	}

	fsys["sys/block/mmcblk0/stat"] = &fstest.MapFile{Data: statRecord(4, 4)}
	got, err = tracker.Sample(ctx, models.RaspberryPiSingleDevice)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("second Sample() = %d, want 3", got)
	}
}

func TestDiskErrorTracker_PartialFailure(t *testing.T) {
	fsys := blockFS(map[string]string{"sda": "0x2", "sdb": "0x3"})
	fsys["sys/block/sdc/stat"] = &fstest.MapFile{Data: []byte("garbage\n")}
	fsys["sys/block/loop0/device/ioerr_cnt"] = &fstest.MapFile{Data: []byte("0x9\n")}
	tracker := NewDiskErrorTracker(NewBlockReader(fsys, ErrorSourceIOErr, nil), "mmcblk0", zap.NewNop())
	ctx := context.Background()

	if got, err := tracker.Sample(ctx, models.GenericAllBlockDevices); err != nil || got != 0 {
		t.Fatalf("first Sample() = %d, %v; want 0, nil", got, err)
	}
	if tracker.prev != 5 {
		t.Errorf("stored total = %d, want 5 from the two readable devices", tracker.prev)
	}

	fsys["sys/block/sdb/device/ioerr_cnt"] = &fstest.MapFile{Data: []byte("0x6\n")}
	got, err := tracker.Sample(ctx, models.GenericAllBlockDevices)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("second Sample() = %d, want 3", got)
	}
}

func TestDiskErrorTracker_Unmeasurable(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		fsys     fstest.MapFS
		topology models.Topology
	}{
		{"no sys/block", fstest.MapFS{}, models.GenericAllBlockDevices},
		{"only malformed devices", fstest.MapFS{"sys/block/sda/stat": {Data: []byte("1 2 3\n")}}, models.GenericAllBlockDevices},
		{"pi device missing", blockFS(map[string]string{"sda": ""}), models.RaspberryPiSingleDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewDiskErrorTracker(NewBlockReader(tt.fsys, ErrorSourceIOErr, nil), "mmcblk0", nil)
			_, err := tracker.Sample(ctx, tt.topology)
			if !errors.Is(err, ErrUnmeasurable) {
				t.Errorf("Sample() error = %v, want ErrUnmeasurable", err)
			}
			if tracker.prev != notTracked {
				t.Errorf("stored total = %d, want untouched sentinel", tracker.prev)
			}
		})
	}
}

func TestDiskErrorTracker_ResetRebases(t *testing.T) {
	fsys := blockFS(map[string]string{"sda": "0x10"})
	tracker := NewDiskErrorTracker(NewBlockReader(fsys, ErrorSourceIOErr, nil), "mmcblk0", nil)
	ctx := context.Background()

	steps := []struct {
		ioerr string
		want  int64
	}{
		{"0x10", 0},
		{"0x2", 0},
		{"0x5", 3},
	}
	for i, step := range steps {
		fsys["sys/block/sda/device/ioerr_cnt"] = &fstest.MapFile{Data: []byte(step.ioerr)}
		got, err := tracker.Sample(ctx, models.GenericAllBlockDevices)
		if err != nil {
			t.Fatal(err)
		}
		if got != step.want {
			t.Errorf("step %d: Sample() = %d, want %d", i, got, step.want)
		}
	}
}
