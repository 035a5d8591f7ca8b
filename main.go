package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output/record"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output/sqlitedb"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output/ws"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/task"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/input"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/randengine"
	"gopkg.in/yaml.v2"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path (empty means built-in defaults)")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 场景数据的缓存地址，设置为空则禁用缓存功能
	// 缓存：将MongoDB中的场景根据db、col与name序列化到本地文件系统，并总是先试图从文件系统中加载
	cacheDir = flag.String("cache", "data/", "input cache dir path (empty means disable cache)")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "gridsim")
)

// loadConfig 读取配置文件或Base64编码的配置数据，两者都未指定时使用默认配置
func loadConfig() (config.Config, error) {
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		if file, err = os.ReadFile(*configPath); err != nil {
			return c, err
		}
	} else if *configData != "" {
		if file, err = base64.StdEncoding.DecodeString(*configData); err != nil {
			return c, err
		}
	} else {
		log.Info("no config specified, use built-in defaults")
		return c, nil
	}
	err = yaml.UnmarshalStrict(file, &c)
	return c, err
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}

	c, err := loadConfig()
	if err != nil {
		log.Panicf("config load err: %v", err)
	}
	log.Infof("%+v", c)
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Panicf("config err: %v", err)
	}

	// 加载场景
	sc, err := input.Init(c, *cacheDir)
	if err != nil {
		log.Panicf("scenario load err: %v", err)
	}
	t, err := task.NewContext(rc, sc, randengine.New(rc.C.Seed))
	if err != nil {
		log.Panicf("simulation init err: %v", err)
	}

	// 输出端
	sinks := make([]output.Sink, 0, 3)
	var hub *ws.Hub
	if rc.O.Listen != "" {
		hub = ws.NewHub(rc.O.Backpressure, rc.O.QueueSize)
		sinks = append(sinks, hub)
	}
	if rc.O.Record != "" {
		w, err := record.NewWriter(rc.O.Record)
		if err != nil {
			log.Panicf("record init err: %v", err)
		}
		sinks = append(sinks, w)
	}
	if rc.O.SQLite != "" {
		s, err := sqlitedb.Open(rc.O.SQLite)
		if err != nil {
			log.Panicf("sqlite init err: %v", err)
		}
		sinks = append(sinks, s)
	}
	if hub != nil {
		t.Attach(output.NewDispatcher(rc.O.Backpressure, rc.O.QueueSize, sinks...), hub)
	} else {
		t.Attach(output.NewDispatcher(rc.O.Backpressure, rc.O.QueueSize, sinks...), nil)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 可视化websocket与只读RPC共用一个HTTP服务
	var server *http.Server
	if hub != nil {
		server = &http.Server{
			Addr:              rc.O.Listen,
			Handler:           t.ServeMux(hub.Handler()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infof("listening on %s", rc.O.Listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server err: %v", err)
				stop()
			}
		}()
	}

	summary, err := t.Run(runCtx)
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = server.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, context.Canceled) {
		log.Warn("interrupted before the simulation started")
		return
	}
	if err != nil {
		log.Panicf("simulation err: %v", err)
	}
	if summary.Interrupted {
		log.Warnf("simulation interrupted after %d steps", summary.Ticks)
	}
}
