// Package shader holds the GLSL sources of the compositor's programs. Every source is
// written once against ESSL 3.00 and given the header of the target dialect.
package shader

const headerGL = "#version 410 core\n"

const headerGLES = `#version 300 es
precision highp float;
precision highp int;
`

func header(isGLES bool) string {
	if isGLES {
		return headerGLES
	}
	return headerGL
}

// Attribute and uniform names shared by every program.
const (
	AttribPosition = "vPosition"
	AttribTexCoord = "vInputTextureCoordinate"
	UniformMVP     = "mvpMatrix"
	UniformTexture = "inputTexture"
)

const vertexBody = `
in vec2 vPosition;
in vec2 vInputTextureCoordinate;
uniform mat4 mvpMatrix;
uniform float pointSize;
out vec2 vTextureCoordinate;
void main() {
    gl_Position = mvpMatrix * vec4(vPosition, 0.0, 1.0);
    gl_PointSize = pointSize;
    vTextureCoordinate = vInputTextureCoordinate;
}
`

// Anything sampled outside [0,1] is a letterbox area and stays transparent.
const textureBody = `
uniform sampler2D inputTexture;
in vec2 vTextureCoordinate;
out vec4 fragColor;
void main() {
    if (vTextureCoordinate.x > 1.0 || vTextureCoordinate.x < 0.0 ||
        vTextureCoordinate.y > 1.0 || vTextureCoordinate.y < 0.0) {
        fragColor = vec4(0.0);
    } else {
        fragColor = texture(inputTexture, vTextureCoordinate);
    }
}
`

// Video frames arrive with the first row at the top, so v is flipped on sampling.
const videoBody = `
uniform sampler2D inputTexture;
in vec2 vTextureCoordinate;
out vec4 fragColor;
void main() {
    if (vTextureCoordinate.x > 1.0 || vTextureCoordinate.x < 0.0 ||
        vTextureCoordinate.y > 1.0 || vTextureCoordinate.y < 0.0) {
        fragColor = vec4(0.0);
    } else {
        fragColor = texture(inputTexture, vec2(vTextureCoordinate.x, 1.0 - vTextureCoordinate.y));
    }
}
`

const primitiveBody = `
uniform vec4 color;
uniform int roundPoints;
out vec4 fragColor;
void main() {
    if (roundPoints == 1 && length(gl_PointCoord - vec2(0.5)) > 0.5) {
        discard;
    }
    fragColor = color;
}
`

const distortionBody = `
uniform sampler2D inputTexture;
uniform vec2 originalPoint;
uniform vec2 targetPoint;
uniform int faceDistortion;
uniform float intensity;
uniform float radius;
uniform float curve;
in vec2 vTextureCoordinate;
out vec4 fragColor;

vec2 narrowFun(vec2 curCoord, vec2 circleCenter, float radius, float intensity, float curve) {
    float currentDistance = distance(curCoord, circleCenter);
    if (currentDistance <= radius) {
        float weight = currentDistance / radius;
        weight = 1.0 - intensity * (1.0 - pow(weight, curve));
        weight = clamp(weight, 0.0, 1.0);
        curCoord = circleCenter + (curCoord - circleCenter) * weight;
    }
    return curCoord;
}

vec2 stretchFun(vec2 textureCoord, vec2 originPosition, vec2 targetPosition, float radius, float intensity, float curve) {
    vec2 direction = targetPosition - originPosition;
    float infect = distance(textureCoord, originPosition) / radius;
    infect = pow(infect, curve);
    infect = clamp(1.0 - infect, 0.0, 1.0);
    return textureCoord - direction * infect * intensity;
}

void main() {
    if (vTextureCoordinate.x > 1.0 || vTextureCoordinate.x < 0.0 ||
        vTextureCoordinate.y > 1.0 || vTextureCoordinate.y < 0.0) {
        fragColor = vec4(0.0);
    } else if (faceDistortion == 1) {
        fragColor = texture(inputTexture, stretchFun(vTextureCoordinate, originalPoint, targetPoint, radius, intensity, curve));
    } else {
        fragColor = texture(inputTexture, narrowFun(vTextureCoordinate, originalPoint, radius, intensity, curve));
    }
}
`

// Vertex returns the vertex shader shared by every program.
func Vertex(isGLES bool) string { return header(isGLES) + vertexBody }

// Texture samples a 2D texture, transparent outside [0,1].
func Texture(isGLES bool) string { return header(isGLES) + textureBody }

// Video samples a top-down video frame.
func Video(isGLES bool) string { return header(isGLES) + videoBody }

// Primitive fills points and lines with a flat color.
func Primitive(isGLES bool) string { return header(isGLES) + primitiveBody }

// Distortion applies the pinch or stretch warp around originalPoint.
func Distortion(isGLES bool) string { return header(isGLES) + distortionBody }

// FilterPreamble is prepended to user filter code. The user code must define
// vec4 filter(vec2 uv). It is always ESSL 3.00 and goes through the translator.
const FilterPreamble = `#version 300 es
precision highp float;
precision highp int;
uniform sampler2D inputTexture;
uniform vec2 resolution;
uniform float time;
out vec4 fragColor;
`

// FilterMain calls the user filter with coordinates derived from the fragment
// position, so the pass needs no varyings from the vertex stage.
const FilterMain = `
void main() {
    fragColor = filter(gl_FragCoord.xy / resolution);
}
`

// Filter assembles a complete fragment source around user filter code.
func Filter(user string) string {
	return FilterPreamble + user + "\n" + FilterMain
}
