package main

import (
	"sort"
)

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type OrderedMap struct {
	valueByKey  map[string]string
	orderedKeys []string
}

func NewOrderedMap(keyVals [][]string) *OrderedMap {
	orderedMap := &OrderedMap{
		valueByKey:  make(map[string]string),
		orderedKeys: make([]string, 0),
	}

	for _, keyVal := range keyVals {
		orderedMap.Set(keyVal[0], keyVal[1])
	}

	return orderedMap
}

func (orderedMap *OrderedMap) Get(key string) string {
	return orderedMap.valueByKey[key]
}

func (orderedMap *OrderedMap) HasKey(key string) bool {
	_, ok := orderedMap.valueByKey[key]
	return ok
}

func (orderedMap *OrderedMap) Set(key string, value string) {
	if _, ok := orderedMap.valueByKey[key]; !ok {
		orderedMap.orderedKeys = append(orderedMap.orderedKeys, key)
	}

	orderedMap.valueByKey[key] = value
}

func (orderedMap *OrderedMap) Keys() []string {
	return orderedMap.orderedKeys
}

func (orderedMap *OrderedMap) Values() []string {
	values := make([]string, 0)
	for _, key := range orderedMap.orderedKeys {
		values = append(values, orderedMap.valueByKey[key])
	}

	return values
}

func (orderedMap *OrderedMap) Len() int {
	return len(orderedMap.orderedKeys)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type Set[T comparable] map[T]struct{}

func NewSet[T comparable](items []T) Set[T] {
	set := make(Set[T])
	for _, item := range items {
		set.Add(item)
	}
	return set
}

func (set Set[T]) Add(item T) {
	set[item] = struct{}{}
}

func (set Set[T]) Contains(item T) bool {
	_, ok := set[item]
	return ok
}

func (set Set[T]) Values() []T {
	values := make([]T, 0, len(set))
	for item := range set {
		values = append(values, item)
	}
	return values
}

func SortedStrings(set Set[string]) []string {
	values := set.Values()
	sort.Strings(values)
	return values
}
