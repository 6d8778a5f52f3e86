package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFeed     int64
	errorsDelivery int64
	warnsFeed      int64
	warnsDelivery  int64
	tickReads      int64
	alertsSent     int64
	reportsSent    int64
	kafkaWrites    int64
	s3Writes       int64
	channels       sync.Map // map[string]*channelStat
)

func isDeliveryComponent(component string) bool {
	return strings.Contains(component, "writer") ||
		strings.Contains(component, "telegram") ||
		strings.Contains(component, "kafka") ||
		strings.Contains(component, "archiver")
}

func recordWarn(component string) {
	if strings.Contains(component, "feed") || strings.Contains(component, "reader") {
		atomic.AddInt64(&warnsFeed, 1)
	} else if isDeliveryComponent(component) {
		atomic.AddInt64(&warnsDelivery, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "feed") || strings.Contains(component, "reader") {
		atomic.AddInt64(&errorsFeed, 1)
	} else if isDeliveryComponent(component) {
		atomic.AddInt64(&errorsDelivery, 1)
	}
}

func IncrementTickRead(size int) {
	atomic.AddInt64(&tickReads, 1)
	recordChannel("feed_ws", size)
}

func IncrementAlertSent(size int) {
	atomic.AddInt64(&alertsSent, 1)
	recordChannel("telegram_alert", size)
}

func IncrementReportSent(size int) {
	atomic.AddInt64(&reportsSent, 1)
	recordChannel("telegram_report", size)
}

func IncrementKafkaWrite(size int) {
	atomic.AddInt64(&kafkaWrites, 1)
	recordChannel("kafka_write", size)
}

func IncrementS3Write(size int64) {
	atomic.AddInt64(&s3Writes, 1)
	recordChannel("s3_archive_write", int(size))
}

func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and channel statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_feed":     atomic.LoadInt64(&errorsFeed),
		"errors_delivery": atomic.LoadInt64(&errorsDelivery),
		"warns_feed":      atomic.LoadInt64(&warnsFeed),
		"warns_delivery":  atomic.LoadInt64(&warnsDelivery),
		"tick_reads":      atomic.LoadInt64(&tickReads),
		"alerts_sent":     atomic.LoadInt64(&alertsSent),
		"reports_sent":    atomic.LoadInt64(&reportsSent),
		"kafka_writes":    atomic.LoadInt64(&kafkaWrites),
		"s3_writes":       atomic.LoadInt64(&s3Writes),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memStats.Used) / 1024 / 1024,
		"disk_mb":         int64(diskStats.Used) / 1024 / 1024,
		"channels":        channelData,
		"net_bytes_sent":  int64(bytesSent),
		"net_bytes_recv":  int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-ErrorsFeed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_feed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-ErrorsDelivery"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_delivery"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-WarnsFeed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_feed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-WarnsDelivery"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_delivery"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-TickReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["tick_reads"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-AlertsSent"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["alerts_sent"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-ReportsSent"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["reports_sent"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-KafkaWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["kafka_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-S3Writes"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["s3_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("OIFlow-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range channelData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("OIFlow-ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("OIFlow-ChannelBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
