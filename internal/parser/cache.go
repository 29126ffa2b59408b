package parser

import (
	"container/list"
	"sync"
)

// 缓存大小限制，避免内存无限增长
var maxCacheSize = 1000

// parserCache 提供了一个线程安全的字段解析结果缓存
// 使用 LRU (最近最少使用) 算法管理缓存，只缓存成功的解析结果
type parserCache struct {
	cache map[cacheKey]*list.Element // 键到访问链表节点的映射
	order *list.List                 // 访问顺序，队首为最近访问
	mu    sync.Mutex                 // 保护缓存
}

// cacheKey 同一段文本在不同取值范围下含义不同，因此按完整的 Domain 区分
type cacheKey struct {
	domain Domain
	text   string
}

type cacheEntry struct {
	key   cacheKey
	field Field
}

// 全局缓存实例
var fieldCache = newParserCache()

func newParserCache() *parserCache {
	return &parserCache{
		cache: make(map[cacheKey]*list.Element),
		order: list.New(),
	}
}

// parse 尝试从缓存中获取解析结果，如果不存在则解析并缓存
// 返回值总是一份独立的拷贝，调用方可以自由修改
func (pc *parserCache) parse(text string, d Domain) (Field, error) {
	key := cacheKey{domain: d, text: text}

	pc.mu.Lock()
	if elem, found := pc.cache[key]; found {
		pc.order.MoveToFront(elem)
		field := elem.Value.(*cacheEntry).field
		pc.mu.Unlock()
		return field.clone(), nil
	}
	pc.mu.Unlock()

	// 缓存未命中，解析字段
	field, err := parseField(text, d)
	if err != nil {
		return Field{}, err
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if elem, exists := pc.cache[key]; exists {
		pc.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).field = field
		return field.clone(), nil
	}

	// 检查缓存是否已满，移除最久未访问的项
	for len(pc.cache) >= maxCacheSize && pc.order.Len() > 0 {
		oldest := pc.order.Back()
		pc.order.Remove(oldest)
		delete(pc.cache, oldest.Value.(*cacheEntry).key)
	}
	pc.cache[key] = pc.order.PushFront(&cacheEntry{key: key, field: field})

	return field.clone(), nil
}

// len 返回当前缓存条目数
func (pc *parserCache) len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.cache)
}

// contains 检查指定字段文本是否已被缓存
func (pc *parserCache) contains(text string, d Domain) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	_, ok := pc.cache[cacheKey{domain: d, text: text}]
	return ok
}
