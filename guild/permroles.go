package guild

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/model"
)

const (
	permRolesReason = "Adding permissions for permission roles"
	muteSyncReason  = "Setting permissions for muted role"
	muteRoleReason  = "Creating the muted role"

	muteRoleName  = "Muted"
	muteRoleColor = 0x24242c

	mutedPermissions = discordgo.PermissionSendMessages | discordgo.PermissionAddReactions | discordgo.PermissionVoiceSpeak
)

// SetPermissionRole stores the overwrite a role should have in every channel.
// Channels are brought in line on the next reconcile.
func (s *Supervisor) SetPermissionRole(ctx context.Context, guildID, roleID string, allow, deny int64) error {
	state, ok := s.State(guildID)
	if !ok {
		return ErrUnknownGuild
	}
	role := model.PermRole{GuildID: guildID, RoleID: roleID, Allow: allow, Deny: deny}
	if err := s.permRoles.Upsert(ctx, role); err != nil {
		return fmt.Errorf("failed to save permission role: %w", err)
	}
	state.mu.Lock()
	state.permRoles[roleID] = role
	state.mu.Unlock()
	return nil
}

// RemovePermissionRole stops managing a role. Existing overwrites stay.
func (s *Supervisor) RemovePermissionRole(ctx context.Context, guildID, roleID string) error {
	state, ok := s.State(guildID)
	if !ok {
		return ErrUnknownGuild
	}
	if err := s.permRoles.Delete(ctx, guildID, roleID); err != nil {
		return fmt.Errorf("failed to remove permission role: %w", err)
	}
	state.mu.Lock()
	delete(state.permRoles, roleID)
	state.mu.Unlock()
	return nil
}

// ReconcilePermissionRoles reloads the guild's permission roles and fixes
// every channel whose overwrite for one of them has drifted.
func (s *Supervisor) ReconcilePermissionRoles(ctx context.Context, guildID string) error {
	state, ok := s.State(guildID)
	if !ok {
		return ErrUnknownGuild
	}
	roles, err := s.permRoles.List(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load permission roles: %w", err)
	}
	state.setPermRoles(roles)
	if len(roles) == 0 {
		return nil
	}

	channels, err := s.manageableChannels(ctx, guildID)
	if err != nil {
		return err
	}

	edited := 0
	for _, role := range state.PermRoles() {
		for _, channel := range channels {
			existing := findOverwrite(channel.PermissionOverwrites, role.RoleID)
			if existing != nil && existing.Allow == role.Allow && existing.Deny == role.Deny {
				continue
			}
			desired := &discordgo.PermissionOverwrite{
				ID:    role.RoleID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: role.Allow,
				Deny:  role.Deny,
			}
			next := replaceOverwrite(channel.PermissionOverwrites, desired)
			if err := s.platform.SetOverwrites(ctx, channel.ID, next, permRolesReason); err != nil {
				s.logger.Warn("Failed to apply permission role",
					zap.String("guild_id", guildID),
					zap.String("channel_id", channel.ID),
					zap.String("role_id", role.RoleID),
					zap.Error(err))
				continue
			}
			channel.PermissionOverwrites = next
			edited++
		}
	}

	if edited > 0 {
		s.logger.Info("Reconciled permission roles",
			zap.String("guild_id", guildID),
			zap.Int("roles", len(roles)),
			zap.Int("edits", edited))
	}
	return nil
}

// SyncMuteRolePermissions makes the muted role deny speaking in every
// channel the bot can manage.
func (s *Supervisor) SyncMuteRolePermissions(ctx context.Context, guildID string) error {
	if _, ok := s.State(guildID); !ok {
		return ErrUnknownGuild
	}
	roleID := s.muteRoleID(ctx, guildID)
	if roleID == "" {
		return nil
	}

	channels, err := s.manageableChannels(ctx, guildID)
	if err != nil {
		return err
	}
	for _, channel := range channels {
		overwrite := &discordgo.PermissionOverwrite{ID: roleID, Type: discordgo.PermissionOverwriteTypeRole}
		if existing := findOverwrite(channel.PermissionOverwrites, roleID); existing != nil {
			if existing.Deny&mutedPermissions == mutedPermissions {
				continue
			}
			overwrite.Allow, overwrite.Deny = existing.Allow, existing.Deny
		}
		overwrite.Allow &^= mutedPermissions
		overwrite.Deny |= mutedPermissions
		if err := s.platform.EditOverwrite(ctx, channel.ID, overwrite, muteSyncReason); err != nil {
			s.logger.Warn("Failed to set muted role permissions",
				zap.String("guild_id", guildID),
				zap.String("channel_id", channel.ID),
				zap.Error(err))
		}
	}
	return nil
}

// InitMuteRole returns the muted role, creating it when the guild has none.
// A new role is stored as mod.mutedrole and denied speaking everywhere.
func (s *Supervisor) InitMuteRole(ctx context.Context, guildID string) (string, error) {
	if _, ok := s.State(guildID); !ok {
		return "", ErrUnknownGuild
	}
	if id := s.muteRoleID(ctx, guildID); id != "" {
		return id, nil
	}

	color, hoist, mentionable, perms := muteRoleColor, false, false, int64(0)
	role, err := s.platform.CreateRole(ctx, guildID, &discordgo.RoleParams{
		Name:        muteRoleName,
		Color:       &color,
		Hoist:       &hoist,
		Mentionable: &mentionable,
		Permissions: &perms,
	}, muteRoleReason)
	if err != nil {
		return "", fmt.Errorf("failed to create muted role: %w", err)
	}
	if err := s.settings.Set(ctx, guildID, keyMuteRole, role.ID); err != nil {
		// The role is still found by name.
		s.logger.Warn("Failed to save muted role", zap.String("guild_id", guildID), zap.Error(err))
	}
	s.logger.Info("Created muted role", zap.String("guild_id", guildID), zap.String("role_id", role.ID))

	if err := s.SyncMuteRolePermissions(ctx, guildID); err != nil {
		s.logger.Warn("Failed to apply muted role permissions", zap.String("guild_id", guildID), zap.Error(err))
	}
	return role.ID, nil
}

// manageableChannels lists the guild channels where the bot holds ManageRoles.
func (s *Supervisor) manageableChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	me, err := s.platform.Self(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bot member: %w", err)
	}
	channels, err := s.platform.Channels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	var manageable []*discordgo.Channel
	for _, channel := range channels {
		perms, err := s.platform.ChannelPermissions(ctx, channel.ID, me.User.ID)
		if err != nil || perms&discordgo.PermissionManageRoles == 0 {
			continue
		}
		manageable = append(manageable, channel)
	}
	return manageable, nil
}

// replaceOverwrite returns a copy of overwrites with the entry for ow.ID set to ow.
func replaceOverwrite(overwrites []*discordgo.PermissionOverwrite, ow *discordgo.PermissionOverwrite) []*discordgo.PermissionOverwrite {
	next := make([]*discordgo.PermissionOverwrite, 0, len(overwrites)+1)
	for _, existing := range overwrites {
		if existing.ID != ow.ID {
			next = append(next, existing)
		}
	}
	return append(next, ow)
}
