package model

import (
	"math/rand"
	"testing"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChannel(id int, priority int64, weight uint, group string, models string) *Channel {
	return &Channel{
		Id:       id,
		Status:   common.ChannelStatusEnabled,
		Group:    group,
		Models:   models,
		Priority: &priority,
		Weight:   &weight,
	}
}

func TestBuildChannelIndex(t *testing.T) {
	low := testChannel(1, 0, 1, "default", "deepseek-chat")
	high := testChannel(2, 5, 1, "default,vip", "deepseek-chat, deepseek-reasoner")
	off := testChannel(3, 9, 1, "default", "deepseek-chat")
	off.Status = common.ChannelStatusAutoDisabled

	index, byId := buildChannelIndex([]*Channel{low, high, off})
	assert.Len(t, byId, 2)
	require.Len(t, index["default"]["deepseek-chat"], 2)
	assert.Equal(t, 2, index["default"]["deepseek-chat"][0].Id)
	assert.Equal(t, 1, index["default"]["deepseek-chat"][1].Id)
	assert.Len(t, index["vip"]["deepseek-reasoner"], 1)
	assert.Empty(t, index["vip"]["unknown"])
}

func TestSelectChannelPriorityAndExclusion(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	a := testChannel(1, 10, 1, "default", "m")
	b := testChannel(2, 10, 1, "default", "m")
	c := testChannel(3, 0, 1, "default", "m")
	candidates := []*Channel{a, b, c}

	for i := 0; i < 20; i++ {
		picked := selectChannel(candidates, nil, r)
		require.NotNil(t, picked)
		assert.NotEqual(t, 3, picked.Id)
	}
	assert.Equal(t, 3, selectChannel(candidates, []int{1, 2}, r).Id)
	assert.Nil(t, selectChannel(candidates, []int{1, 2, 3}, r))
	assert.Nil(t, selectChannel(nil, nil, r))
}

func TestSelectChannelWeight(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	heavy := testChannel(1, 0, 1000, "default", "m")
	light := testChannel(2, 0, 1, "default", "m")
	counts := map[int]int{}
	for i := 0; i < 200; i++ {
		counts[selectChannel([]*Channel{heavy, light}, nil, r).Id]++
	}
	assert.Greater(t, counts[1], counts[2])
}

func TestChannelServes(t *testing.T) {
	ch := testChannel(1, 0, 0, "", "deepseek-chat")
	assert.True(t, ch.Serves("default", "deepseek-chat"))
	assert.False(t, ch.Serves("vip", "deepseek-chat"))
	assert.False(t, ch.Serves("default", "gpt-4o"))
	assert.Equal(t, uint(1), ch.GetWeight())
}

func TestLoadConfigInvalid(t *testing.T) {
	ch := &Channel{Id: 4, Config: "{"}
	_, err := ch.LoadConfig()
	assert.ErrorContains(t, err, "channel 4 config")
}
