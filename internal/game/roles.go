package game

import "math/rand"

// PlayerCount is the only supported table size.
const PlayerCount = 8

// ShuffledRoles returns the fixed 8-player role multiset in random order:
// two mafia, one doctor, one police, four citizens.
func ShuffledRoles() []Role {
	roles := []Role{
		RoleMafia,
		RoleMafia,
		RoleDoctor,
		RolePolice,
		RoleCitizen,
		RoleCitizen,
		RoleCitizen,
		RoleCitizen,
	}
	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	return roles
}
