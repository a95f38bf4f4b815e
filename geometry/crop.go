package geometry

// CropWindow returns the window of size (cropW, cropH) centered on (pointX, pointY)
// inside a source of size (srcW, srcH), shifted so it never leaves the source, in
// source pixels. A window larger than the source is shrunk to the source.
func CropWindow(srcW, srcH, cropW, cropH, pointX, pointY float32) Rect {
	cropW = clamp(cropW, 0, srcW)
	cropH = clamp(cropH, 0, srcH)

	left := pointX - cropW/2
	right := pointX + cropW/2
	bottom := pointY - cropH/2
	top := pointY + cropH/2

	if left < 0 {
		right -= left
		left = 0
	} else if right > srcW {
		left -= right - srcW
		right = srcW
	}
	if bottom < 0 {
		top -= bottom
		bottom = 0
	} else if top > srcH {
		bottom -= top - srcH
		top = srcH
	}
	return Rect{X: left, Y: bottom, W: right - left, H: top - bottom}
}

// CropTexture returns the normalized texture coordinates of CropWindow.
func CropTexture(srcW, srcH, cropW, cropH, pointX, pointY float32) Quad {
	if srcW <= 0 || srcH <= 0 {
		return UnitQuad
	}
	w := CropWindow(srcW, srcH, cropW, cropH, pointX, pointY)
	return Position(w.X/srcW, w.Y/srcH, w.W/srcW, w.H/srcH)
}
