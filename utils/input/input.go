package input

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v2"
)

const mongoTimeout = 30 * time.Second

// Init 加载场景数据
// 功能：根据配置从文件、缓存或MongoDB加载场景并校验
// 参数：c-配置对象，cacheDir-缓存目录（为空则禁用缓存）
// 返回：校验通过的场景
// 算法说明：
// 1. 指定了文件：按YAML解析（JSON是YAML的子集，同样适用）
// 2. 指定了MongoDB：先尝试缓存，缓存不存在则下载并写入缓存
// 3. 都没有：使用内置参考场景
// 4. JSON Schema校验
func Init(c config.Config, cacheDir string) (*Scenario, error) {
	useCache := preCheckCache(cacheDir)
	if !useCache {
		cacheDir = ""
	}

	var (
		s   *Scenario
		err error
	)
	p := c.Input.Scenario
	switch {
	case p.File != "":
		s, err = LoadFile(p.File)
	case c.Input.URI != "" || p.OnlyCache:
		s, err = loadWithCache(cacheDir, p, func() (*Scenario, error) {
			return download(c.Input.URI, p)
		})
	default:
		log.Info("no scenario input specified, use built-in reference scenario")
		s = Reference()
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	log.Infof("scenario %q: map %dx%d, %d lights, %d cars", s.Name, len(s.Map), len(s.Map[0]), len(s.Lights), len(s.Cars))
	return s, nil
}

// LoadFile 从YAML/JSON文件加载场景
func LoadFile(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var s Scenario
	if err := yaml.UnmarshalStrict(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, path, err)
	}
	return &s, nil
}

// download 从MongoDB下载场景文档
// 说明：指定场景名时按name字段筛选，否则取集合中第一个文档
func download(uri string, p config.InputPath) (*Scenario, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri is empty")
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongodb: %w", err)
	}
	defer client.Disconnect(context.Background())

	filter := bson.M{}
	if p.Name != "" {
		filter = bson.M{"name": p.Name}
	}
	log.Infof("start fetching from %s.%s", p.DB, p.Col)
	var s Scenario
	if err := client.Database(p.DB).Collection(p.Col).FindOne(ctx, filter).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to fetch scenario from %s.%s: %w", p.DB, p.Col, err)
	}
	log.Infof("finish fetching from %s.%s", p.DB, p.Col)
	return &s, nil
}

// loadWithCache 带缓存的加载
// 功能：缓存文件存在时直接读取；否则调用downloadFunc并写入缓存
// 参数：cacheDir-缓存目录（为空则不使用缓存），p-输入路径配置，downloadFunc-下载函数
func loadWithCache(cacheDir string, p config.InputPath, downloadFunc func() (*Scenario, error)) (*Scenario, error) {
	var cachePath string
	if cacheDir != "" {
		cachePath = filepath.Join(cacheDir, p.GetCachePath())
		if b, err := os.ReadFile(cachePath); err == nil {
			var s Scenario
			if err := json.Unmarshal(b, &s); err != nil {
				return nil, fmt.Errorf("%w: bad cache %s: %v", ErrInvalidScenario, cachePath, err)
			}
			log.Infof("load scenario from cache %s", cachePath)
			return &s, nil
		}
	}
	if p.OnlyCache {
		return nil, fmt.Errorf("only_cache is set but no cache found for %s.%s", p.DB, p.Col)
	}
	s, err := downloadFunc()
	if err != nil {
		return nil, err
	}
	if cachePath != "" {
		if b, err := json.Marshal(s); err != nil {
			log.Warnf("failed to encode cache: %v", err)
		} else if err := os.WriteFile(cachePath, b, 0o644); err != nil {
			log.Warnf("failed to write cache %s: %v", cachePath, err)
		} else {
			log.Infof("save scenario cache to %s", cachePath)
		}
	}
	return s, nil
}

// preCheckCache 预检查缓存目录
// 返回：true表示启用缓存，false表示禁用缓存
func preCheckCache(cacheDir string) bool {
	if cacheDir == "" {
		log.Info("disable input cache")
		return false
	}
	if stat, err := os.Stat(cacheDir); err == nil && stat.IsDir() {
		log.Infof("enable input cache at %s", cacheDir)
		return true
	}
	log.Errorf("disable input cache because invalid dir %s (not exist or file)", cacheDir)
	return false
}
