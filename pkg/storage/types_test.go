package storage

import (
	"testing"

	"github.com/pubhubs/pubhubs-core/id"
	"github.com/stretchr/testify/require"
)

func TestAttrStateCanRemove(t *testing.T) {
	u1 := id.NewUserID()
	u2 := id.NewUserID()

	s := AttrState{BansUsers: []id.UserID{u1}}
	require.True(t, s.CanRemove(u1), "only the removing user itself depends on it")

	s.BansUsers = append(s.BansUsers, u2)
	require.False(t, s.CanRemove(u1), "another user still depends on it")
}

func TestAttrStateDependsOn(t *testing.T) {
	u1 := id.NewUserID()
	u2 := id.NewUserID()
	s := AttrState{BansUsers: []id.UserID{u1}}

	require.True(t, s.DependsOn(u1))
	require.False(t, s.DependsOn(u2))
}
