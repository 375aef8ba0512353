package google

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

// rootIDLength is the length of a real Drive folder id.
const rootIDLength = 33

// EnsureFolderStructure resolves the owner's folder hierarchy, preferring the cache.
// Folders found before a missing one stay resolved on the client so that
// CreateFolderStructure only creates what is absent.
func (c *Client) EnsureFolderStructure(ctx context.Context) (models.FolderStructure, error) {
	key := c.entry.Key(c.owner.ID)
	if c.cache != nil {
		var cached models.FolderStructure
		if hit, err := c.cache.Get(ctx, key, &cached); err == nil && hit && cached.Resolved() {
			c.structure = cached
			return cached, nil
		}
	}

	root, err := c.findFolder(ctx, c.structure.Name, "")
	if err != nil {
		return c.structure, err
	}
	c.structure.ID = root.ID

	data, err := c.findFolder(ctx, c.structure.DataFolder.Name, root.ID)
	if err != nil {
		return c.structure, err
	}
	c.structure.DataFolder.ID = data.ID

	responses, err := c.findFolder(ctx, c.structure.ResponsesFolder.Name, root.ID)
	if err != nil {
		return c.structure, err
	}
	c.structure.ResponsesFolder.ID = responses.ID

	c.remember(ctx)
	return c.structure, nil
}

// CreateFolderStructure creates whichever folders are still unresolved.
func (c *Client) CreateFolderStructure(ctx context.Context) (models.FolderStructure, error) {
	if c.structure.ID == "" {
		id, err := c.createFolder(ctx, c.structure.Name, "")
		if err != nil {
			return c.structure, err
		}
		c.structure.ID = id
	}
	if c.structure.DataFolder.ID == "" {
		id, err := c.createFolder(ctx, c.structure.DataFolder.Name, c.structure.ID)
		if err != nil {
			return c.structure, err
		}
		c.structure.DataFolder.ID = id
	}
	if c.structure.ResponsesFolder.ID == "" {
		id, err := c.createFolder(ctx, c.structure.ResponsesFolder.Name, c.structure.ID)
		if err != nil {
			return c.structure, err
		}
		c.structure.ResponsesFolder.ID = id
	}

	c.remember(ctx)
	return c.structure, nil
}

// DeleteFolderStructure deletes the root folder, and with it the hierarchy. It
// reports whether a delete was issued.
func (c *Client) DeleteFolderStructure(ctx context.Context) (bool, error) {
	if _, err := c.EnsureFolderStructure(ctx); err != nil {
		if !IsKind(err, KindMissingFolderStructure) {
			return false, c.deletionFailed(err)
		}
		c.logger.Warn("folder structure does not exist, attempting delete", zap.String("email", c.owner.Email), zap.Error(err))
	}

	if len(c.structure.ID) != rootIDLength {
		return false, nil
	}

	rootID := c.structure.ID
	if err := c.call("drive.delete_folder", false, func() error {
		return c.files.Delete(ctx, rootID)
	}); err != nil {
		return false, c.deletionFailed(err)
	}

	if c.cache != nil {
		if err := c.cache.Delete(ctx, c.entry.Key(c.owner.ID)); err != nil {
			c.logger.Warn("invalidate folder structure cache", zap.Error(err))
		}
	}
	return true, nil
}

// UploadSpreadsheet uploads a file into the data folder, converting it into a spreadsheet.
func (c *Client) UploadSpreadsheet(ctx context.Context, r io.Reader, name, contentType string) (models.DriveFile, error) {
	if _, err := c.EnsureFolderStructure(ctx); err != nil {
		return models.DriveFile{}, err
	}
	var file models.DriveFile
	err := c.call("drive.upload", false, func() error {
		var err error
		file, err = c.files.CreateSpreadsheet(ctx, name, c.structure.DataFolder.ID, contentType, r)
		return err
	})
	return file, err
}

// CreateResponseSpreadsheet creates an empty spreadsheet in the responses folder.
func (c *Client) CreateResponseSpreadsheet(ctx context.Context, name string) (models.DriveFile, error) {
	if _, err := c.EnsureFolderStructure(ctx); err != nil {
		return models.DriveFile{}, err
	}
	var file models.DriveFile
	err := c.call("drive.create_response", false, func() error {
		var err error
		file, err = c.files.CreateSpreadsheet(ctx, name, c.structure.ResponsesFolder.ID, "", nil)
		return err
	})
	return file, err
}

// TrashFile moves a file to the trash.
func (c *Client) TrashFile(ctx context.Context, fileID string) error {
	if _, err := c.EnsureFolderStructure(ctx); err != nil {
		return err
	}
	err := c.call("drive.trash", true, func() error {
		return c.files.Trash(ctx, fileID)
	})
	if err != nil && isNotFound(err) {
		return newError(KindFileToDeleteNotFound,
			"The file you are trying to delete is not present. It may have been removed from Google Drive already.", err)
	}
	return err
}

func (c *Client) findFolder(ctx context.Context, name, parentID string) (*models.Folder, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMIME)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	var folder *models.Folder
	err := c.call("drive.find_folder", false, func() error {
		var err error
		folder, err = c.files.FindFolder(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	if folder == nil || folder.ID == "" {
		return nil, newError(KindMissingFolderStructure,
			fmt.Sprintf("The folder %s in drive does not exist. Please ensure this folder is not manually deleted or moved to trash.", name), nil)
	}
	return folder, nil
}

func (c *Client) createFolder(ctx context.Context, name, parentID string) (string, error) {
	var id string
	err := c.call("drive.create_folder", false, func() error {
		var err error
		id, err = c.files.CreateFolder(ctx, name, parentID)
		return err
	})
	if err != nil {
		if IsKind(err, KindHTTP) {
			return "", err
		}
		return "", c.creationFailed(err)
	}
	if id == "" {
		return "", c.creationFailed(fmt.Errorf("folder %s created without id", name))
	}
	return id, nil
}

func (c *Client) creationFailed(err error) error {
	return newError(KindStructureCreationFailed,
		fmt.Sprintf("An error occurred while creating file structure in the Google Drive for user %s.", c.owner.Email), err)
}

func (c *Client) deletionFailed(err error) error {
	return newError(KindStructureDeletionFailed,
		fmt.Sprintf("An error occurred while deleting file structure in the Google Drive for user %s.", c.owner.Email), err)
}

func (c *Client) remember(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, c.entry.Key(c.owner.ID), c.structure, c.entry.TTL); err != nil {
		c.logger.Warn("cache folder structure", zap.Error(err))
	}
}

func escapeQuery(value string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
}
