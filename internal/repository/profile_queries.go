package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prperemyshlev/media-identity/internal/domain"
)

// channelProfileQuery counts subscription edges in both directions for the
// channel and tests whether the viewer is one of its subscribers.
const channelProfileQuery = `
	SELECT u.id, u.full_name, u.user_name, u.email, u.avatar_url, u.cover_image_url,
	       (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
	       (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
	       EXISTS (
	           SELECT 1 FROM subscriptions s
	           WHERE s.channel_id = u.id AND s.subscriber_id = $2
	       ) AS is_subscribed
	FROM users u
	WHERE LOWER(u.user_name) = LOWER($1)
`

// watchHistoryQuery expands the ordered watch_history array, joins each id to
// its video and attaches the first matching owner. Ids without a video are
// dropped; videos without an owner keep NULL owner columns.
const watchHistoryQuery = `
	SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.views, v.is_published, v.created_at,
	       o.full_name, o.user_name, o.avatar_url
	FROM users u
	CROSS JOIN LATERAL UNNEST(u.watch_history) WITH ORDINALITY AS h(video_id, position)
	JOIN videos v ON v.id = h.video_id
	LEFT JOIN LATERAL (
	    SELECT ou.full_name, ou.user_name, ou.avatar_url
	    FROM users ou
	    WHERE ou.id = v.owner_id
	    LIMIT 1
	) o ON TRUE
	WHERE u.id = $1
	ORDER BY h.position
`

// ChannelProfile returns the channel read model for userName as seen by viewerID
func (r *userRepository) ChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error) {
	// A viewer id that is not a uuid cannot be a subscriber.
	viewer := sql.NullString{String: viewerID, Valid: false}
	if _, err := uuid.Parse(viewerID); err == nil {
		viewer.Valid = true
	}

	profile := &domain.ChannelProfile{}
	err := r.db.DB.QueryRowContext(ctx, channelProfileQuery, userName, viewer).Scan(
		&profile.ID,
		&profile.FullName,
		&profile.UserName,
		&profile.Email,
		&profile.AvatarURL,
		&profile.CoverImageURL,
		&profile.SubscriberCount,
		&profile.SubscribedToCount,
		&profile.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %s not found: %w", userName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get channel profile: %w", err)
	}

	return profile, nil
}

// WatchHistory returns the user's watched videos in watch order with owners attached
func (r *userRepository) WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	rows, err := r.db.DB.QueryContext(ctx, watchHistoryQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch history: %w", err)
	}
	defer rows.Close()

	videos := []domain.WatchedVideo{}
	for rows.Next() {
		var video domain.WatchedVideo
		var ownerFullName, ownerUserName, ownerAvatar sql.NullString

		err := rows.Scan(
			&video.ID,
			&video.VideoFile,
			&video.Thumbnail,
			&video.Title,
			&video.Description,
			&video.Duration,
			&video.Views,
			&video.IsPublished,
			&video.CreatedAt,
			&ownerFullName,
			&ownerUserName,
			&ownerAvatar,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watched video: %w", err)
		}

		if ownerUserName.Valid {
			video.Owner = &domain.VideoOwner{
				FullName:  ownerFullName.String,
				UserName:  ownerUserName.String,
				AvatarURL: ownerAvatar.String,
			}
		}

		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watch history: %w", err)
	}

	return videos, nil
}
