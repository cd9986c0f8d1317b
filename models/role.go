package models

// Role 角色标签
type Role string

const (
	// 假画家
	RolePlain Role = "plain"
	RoleFaker Role = "faker"

	// 政治游戏
	RoleProgressive Role = "progressive"
	RoleReactionary Role = "reactionary"
	RoleLeader      Role = "hidden_leader"
	RoleAlive       Role = "alive"

	// 一夜换牌
	RoleVillager     Role = "villager"
	RoleWerewolf     Role = "werewolf"
	RoleSeer         Role = "seer"
	RoleRobber       Role = "robber"
	RoleTroublemaker Role = "troublemaker"
)

// RoleSet 玩家持有的角色标签集合
type RoleSet map[Role]struct{}

// NewRoleSet 创建角色集合
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) Add(r Role) {
	s[r] = struct{}{}
}

func (s RoleSet) Remove(r Role) {
	delete(s, r)
}

// Clone 返回独立的副本，避免多个玩家共享同一集合
func (s RoleSet) Clone() RoleSet {
	out := make(RoleSet, len(s))
	for r := range s {
		out[r] = struct{}{}
	}
	return out
}
